package responder

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SameSite is the value of the SameSite cookie attribute.
type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// CookieOptions is the attribute set of one Set-Cookie directive. The zero
// value has no attributes. Max-Age and Expires are exclusive: whichever
// setter ran last wins.
type CookieOptions struct {
	domain   string
	path     string
	maxAge   time.Duration
	expires  time.Time
	lifetime lifetime
	httpOnly bool
	secure   bool
	sameSite SameSite
}

type lifetime uint8

const (
	lifetimeNone lifetime = iota
	lifetimeMaxAge
	lifetimeExpires
)

// SetDomain sets the Domain attribute.
func (o *CookieOptions) SetDomain(domain string) *CookieOptions {
	o.domain = domain
	return o
}

// SetPath sets the Path attribute.
func (o *CookieOptions) SetPath(path string) *CookieOptions {
	o.path = path
	return o
}

// SetMaxAge sets Max-Age, truncated to whole seconds, and clears Expires.
func (o *CookieOptions) SetMaxAge(d time.Duration) *CookieOptions {
	o.maxAge = d
	o.expires = time.Time{}
	o.lifetime = lifetimeMaxAge
	return o
}

// SetExpiration sets Expires and clears Max-Age.
func (o *CookieOptions) SetExpiration(t time.Time) *CookieOptions {
	o.expires = t
	o.maxAge = 0
	o.lifetime = lifetimeExpires
	return o
}

// SetHttpOnly toggles the HttpOnly flag.
func (o *CookieOptions) SetHttpOnly(on bool) *CookieOptions {
	o.httpOnly = on
	return o
}

// SetSecure toggles the Secure flag.
func (o *CookieOptions) SetSecure(on bool) *CookieOptions {
	o.secure = on
	return o
}

// SetSameSite sets the SameSite attribute; an empty mode removes it.
func (o *CookieOptions) SetSameSite(mode SameSite) *CookieOptions {
	o.sameSite = mode
	return o
}

// EncodeCookie renders the value of a Set-Cookie header. Attributes appear
// in the order Domain, Path, Max-Age or Expires, HttpOnly, Secure, SameSite.
func EncodeCookie(name, value string, opts CookieOptions) string {
	var b strings.Builder
	b.Grow(len(name) + len(value) + 64)

	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)

	if opts.domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(opts.domain)
	}
	if opts.path != "" {
		b.WriteString("; Path=")
		b.WriteString(opts.path)
	}

	switch opts.lifetime {
	case lifetimeMaxAge:
		secs := int64(opts.maxAge / time.Second)
		if secs < 0 {
			secs = 0
		}
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.FormatInt(secs, 10))
	case lifetimeExpires:
		b.WriteString("; Expires=")
		b.WriteString(opts.expires.UTC().Format(http.TimeFormat))
	}

	if opts.httpOnly {
		b.WriteString("; HttpOnly")
	}
	if opts.secure {
		b.WriteString("; Secure")
	}
	if opts.sameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(string(opts.sameSite))
	}

	return b.String()
}
