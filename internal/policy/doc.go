// Package policy decides whether an origin image is worth re-encoding.
//
// Decide is a pure function over the origin Content-Type and Content-Length,
// the presence of a Range header on the inbound request, and the requested
// output format. It returns a Verdict whose Reason names the rule that fired:
//
//	not-image                Content-Type does not start with "image"
//	empty-or-unknown-length  Content-Length is zero or absent
//	range-request            the client asked for a byte range
//	small-transparent        PNG/GIF below TransparentMin while forcing JPEG
//	below-threshold          below Min while producing WebP
//	compress                 none of the above
//
// Thresholds are process-wide configuration and are passed by value.
package policy
