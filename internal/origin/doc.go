// Package origin fetches images from the URLs clients ask the proxy for.
//
// A Fetcher issues exactly one GET per request and never follows redirects
// itself: a 3xx with a Location comes back as *RedirectError so the client
// can be sent there directly, and any status >= 400 comes back as
// *StatusError. Only Cookie, DNT, Referer and Range travel from the client to
// the origin; the proxy adds its own User-Agent, X-Forwarded-For and Via.
//
// Targets are validated by ParseTarget and hosts are converted to their
// ASCII form with IDNA. With BlockPrivate set, the transport resolves names
// itself and refuses to connect to loopback, private, link-local and other
// reserved ranges, checked at connect time so DNS rebinding cannot slip an
// internal address past it.
package origin
