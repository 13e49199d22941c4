package http

import (
	"errors"
	"testing"

	"github.com/freekieb7/espweb/test"
)

func TestCookieString(t *testing.T) {
	cookie := &Cookie{
		Name:     "test",
		Value:    "value",
		Path:     "/",
		Domain:   "example.com",
		MaxAge:   3600,
		Secure:   true,
		HttpOnly: true,
		SameSite: SameSiteLaxMode,
	}

	expected := "test=value; Path=/; Domain=example.com; Max-Age=3600; Secure; HttpOnly; SameSite=Lax"
	result := cookie.String()

	if result != expected {
		t.Errorf("Expected %s, got %s", expected, result)
	}
}

func TestCookieStringDefaults(t *testing.T) {
	testCases := []struct {
		cookie   Cookie
		expected string
	}{
		{NewCookie("sid", "abc"), "sid=abc; Path=/; SameSite=Lax"},
		{Cookie{Name: "a", Value: "b", MaxAge: -1, SameSite: SameSiteNoneMode}, "a=b; Path=/; Secure; SameSite=None"},
		{Cookie{Name: "a", Value: "b", Path: "/x", MaxAge: -1, SameSite: SameSiteStrictMode}, "a=b; Path=/x; SameSite=Strict"},
		{Cookie{Name: "gone", MaxAge: 0}, "gone=; Path=/; Max-Age=0; SameSite=Lax"},
	}

	for _, tc := range testCases {
		if result := tc.cookie.String(); result != tc.expected {
			t.Errorf("Expected %s, got %s", tc.expected, result)
		}
	}
}

func TestCookieValid(t *testing.T) {
	testCases := []struct {
		name   string
		cookie Cookie
		valid  bool
	}{
		{"valid", Cookie{Name: "valid", Value: "test"}, true},
		{"empty name", Cookie{Name: "", Value: "test"}, false},
		{"space in name", Cookie{Name: "a b", Value: "test"}, false},
		{"semicolon in value", Cookie{Name: "a", Value: "x;y"}, false},
		{"control in path", Cookie{Name: "a", Value: "b", Path: "/\n"}, false},
		{"semicolon in domain", Cookie{Name: "a", Value: "b", Domain: "a.com; Secure"}, false},
	}

	for _, tc := range testCases {
		err := tc.cookie.Valid()
		if (err == nil) != tc.valid {
			t.Errorf("%s: Valid() = %v, want valid %v", tc.name, err, tc.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidCookie) {
			t.Errorf("%s: expected ErrInvalidCookie, got %v", tc.name, err)
		}
	}

	long := Cookie{Name: "long", Value: string(make([]byte, 5000))}
	if err := long.Valid(); !errors.Is(err, ErrCookieTooLong) {
		t.Errorf("Expected ErrCookieTooLong, got %v", err)
	}
}

func TestParseCookies(t *testing.T) {
	testCases := []struct {
		header   string
		expected map[string]string
	}{
		{"", map[string]string{}},
		{"a=1", map[string]string{"a": "1"}},
		{"a=1\x01", map[string]string{}},
		{"a=1;b=2", map[string]string{"a": "1", "b": "2"}},
		{"a=1; a=2", map[string]string{"a": "1"}},
		{" ; =v; k=", map[string]string{"k": ""}},
	}

	for _, tc := range testCases {
		cookies := ParseCookies(tc.header)
		if len(cookies) != len(tc.expected) {
			t.Errorf("ParseCookies(%q) = %v, want %v", tc.header, cookies, tc.expected)
			continue
		}
		for name, value := range tc.expected {
			if cookies[name] != value {
				t.Errorf("ParseCookies(%q)[%s] = %q, want %q", tc.header, name, cookies[name], value)
			}
		}
	}
}

func TestResponseSetCookie(t *testing.T) {
	server := newTestServer()
	var invalid, late error

	server.Handle("GET", "/", func(req *Request, res *Response) {
		res.SetCookie(NewCookie("first", "1"))
		res.SetCookie(NewCookie("second", "2"))
		invalid = res.SetCookie(Cookie{Name: "bad name"})
		res.ClearCookie("old", "/app")
		res.SendText(StatusOK, "text/plain", "ok")
		late = res.SetCookie(NewCookie("late", "3"))
	})

	rec := serve(server, newRecorder("GET", "/"))

	values := rec.headerValues("Set-Cookie")
	if len(values) != 3 {
		t.Fatalf("Expected 3 Set-Cookie headers, got %d: %v", len(values), values)
	}
	test.Equal(t, "first=1; Path=/; SameSite=Lax", values[0])
	test.Equal(t, "second=2; Path=/; SameSite=Lax", values[1])
	test.Equal(t, "old=; Path=/app; Max-Age=0; SameSite=Lax", values[2])
	test.True(t, errors.Is(invalid, ErrInvalidCookie), "invalid cookie rejected")
	test.True(t, errors.Is(late, ErrCommitted), "cookie after commit rejected")
}
