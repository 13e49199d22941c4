package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type SameSite int

const (
	SameSiteLaxMode SameSite = iota
	SameSiteStrictMode
	SameSiteNoneMode
)

func (s SameSite) String() string {
	switch s {
	case SameSiteStrictMode:
		return "Strict"
	case SameSiteNoneMode:
		return "None"
	default:
		return "Lax"
	}
}

var (
	ErrInvalidCookie = errors.New("http: invalid cookie format")
	ErrCookieTooLong = errors.New("http: cookie value too long")
)

// Cookie is a Set-Cookie value. A negative MaxAge makes a session cookie,
// zero expires the cookie immediately.
type Cookie struct {
	Name  string
	Value string

	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSite
}

// NewCookie returns a session cookie scoped to the whole site.
func NewCookie(name, value string) Cookie {
	return Cookie{
		Name:   name,
		Value:  value,
		Path:   "/",
		MaxAge: -1,
	}
}

// normalized applies the attribute rules browsers enforce: SameSite=None is
// only accepted together with Secure.
func (c Cookie) normalized() Cookie {
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == SameSiteNoneMode {
		c.Secure = true
	}
	return c
}

func (c Cookie) String() string {
	c = c.normalized()

	var b strings.Builder

	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	b.WriteString("; Path=")
	b.WriteString(c.Path)

	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}

	if c.MaxAge >= 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	}

	if c.Secure {
		b.WriteString("; Secure")
	}

	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}

	b.WriteString("; SameSite=")
	b.WriteString(c.SameSite.String())

	return b.String()
}

// Valid checks if the cookie is valid according to RFC 6265
func (c *Cookie) Valid() error {
	if c.Name == "" {
		return fmt.Errorf("%w: cookie name cannot be empty", ErrInvalidCookie)
	}

	for _, r := range c.Name {
		if !isValidCookieNameChar(r) {
			return fmt.Errorf("%w: invalid character in cookie name: %q", ErrInvalidCookie, r)
		}
	}

	// Check value length (practical limit)
	if len(c.Value) > 4096 {
		return ErrCookieTooLong
	}

	for _, r := range c.Value {
		if !isValidCookieValueChar(r) {
			return fmt.Errorf("%w: invalid character in cookie value: %q", ErrInvalidCookie, r)
		}
	}

	for _, attr := range []string{c.Path, c.Domain} {
		if strings.ContainsAny(attr, ";\r\n") || hasControl(attr) {
			return fmt.Errorf("%w: invalid attribute %q", ErrInvalidCookie, attr)
		}
	}

	return nil
}

// Delete turns the cookie into one that removes itself on the client.
func (c *Cookie) Delete() {
	c.Value = ""
	c.MaxAge = 0
}

// isValidCookieNameChar returns true if the character is valid in a cookie name
func isValidCookieNameChar(r rune) bool {
	// RFC 6265 - valid characters for cookie names
	return r > 0x20 && r < 0x7f && r != '"' && r != ',' && r != ';' && r != '\\' &&
		r != '=' && r != '(' && r != ')' && r != '<' && r != '>' && r != '@' &&
		r != '{' && r != '}' && r != '[' && r != ']' && r != '?' && r != ':' && r != '/'
}

func isValidCookieValueChar(r rune) bool {
	return r > 0x20 && r < 0x7f && r != '"' && r != ',' && r != ';' && r != '\\'
}

// ParseCookies parses a Cookie request header. Pairs with an empty name or
// control characters are skipped; the first occurrence of a name wins.
func ParseCookies(header string) map[string]string {
	cookies := make(map[string]string)

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if name == "" || hasControl(name) || hasControl(value) {
			continue
		}
		if _, found := cookies[name]; found {
			continue
		}

		cookies[name] = value
	}

	return cookies
}
