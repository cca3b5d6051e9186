// Package engine defines the transform engine abstraction used by the
// transcoding pipeline and ships the pure-Go implementation.
//
// An Engine loads a source stream into an Image, which exposes its decoded
// Metadata and encodes itself once under a Transform. Two implementations
// exist:
//
//   - engine/vips wraps libvips through govips and is the default. It
//     produces WebP and JPEG.
//   - Imaging uses disintegration/imaging with the golang.org/x/image
//     decoders. It cannot encode WebP, so it answers WebP requests with JPEG
//     and reports that in Output.Format.
//
// Images are single-owner: the request that loaded one must Close it.
package engine
