// Package mediatypes provides shared type definitions and utilities for the
// image formats handled by the proxy.
//
// This package exists as a dependency-free foundation that can be imported by
// the request, policy, engine and handler packages without creating import
// cycles. It contains primitive types, constants, and pure utility functions
// with no external dependencies beyond the standard library.
//
// # Output Formats
//
// The proxy produces exactly two output formats:
//
//	mediatypes.FormatWebP // default
//	mediatypes.FormatJPEG // forced by the jpeg query parameter
//
// Use MimeType to obtain the Content-Type for a produced format:
//
//	w.Header().Set("Content-Type", mediatypes.FormatWebP.MimeType())
//
// # Origin Content Types
//
// Origin Content-Type values are matched after stripping parameters:
//
//	mediatypes.IsImage("image/png; charset=binary")   // true
//	mediatypes.IsTransparentCapable("image/gif")       // true
//	mediatypes.IsTransparentCapable("image/jpeg")      // false
package mediatypes
