package http

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		target   string
		path     string
		segments []string
	}{
		{"", "/", nil},
		{"/", "/", nil},
		{"//a//b/", "/a/b", []string{"a", "b"}},
		{"/a/b?x=1", "/a/b", []string{"a", "b"}},
		{"/a%20b/c", "/a b/c", []string{"a b", "c"}},
		{"/a+b", "/a+b", []string{"a+b"}},
		{"/bad%zz", "/bad%zz", []string{"bad%zz"}},
		{"/trailing%", "/trailing%", []string{"trailing%"}},
	}

	for _, tc := range testCases {
		path, segments := NormalizePath(tc.target)
		if path != tc.path {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.target, path, tc.path)
		}
		if strings.Join(segments, "|") != strings.Join(tc.segments, "|") {
			t.Errorf("NormalizePath(%q) segments = %q, want %q", tc.target, segments, tc.segments)
		}

		again, _ := NormalizePath(path)
		if strings.ContainsRune(path, '%') {
			continue
		}
		if again != path {
			t.Errorf("NormalizePath is not idempotent for %q: %q", path, again)
		}
	}
}

func TestRawPathTrailingSlash(t *testing.T) {
	testCases := map[string]bool{
		"/":          false,
		"/docs/":     true,
		"/docs":      false,
		"/docs/?q=1": true,
		"/docs?q=/":  false,
	}

	for target, expected := range testCases {
		if got := rawPathHasTrailingSlash(target); got != expected {
			t.Errorf("rawPathHasTrailingSlash(%q) = %v, want %v", target, got, expected)
		}
	}
}

func segmentsOf(p string) []string {
	_, segments := NormalizePath(p)
	return segments
}

func TestRouterPrefersLiteral(t *testing.T) {
	for _, literalFirst := range []bool{true, false} {
		router := NewRouter()
		var hit string

		register := []func(){
			func() { router.GET("/a/:id", func(req *Request, res *Response) { hit = "param" }) },
			func() { router.GET("/a/b", func(req *Request, res *Response) { hit = "literal" }) },
		}
		if literalFirst {
			register[0], register[1] = register[1], register[0]
		}
		for _, fn := range register {
			fn()
		}

		route, params, found := router.Match("GET", segmentsOf("/a/b"))
		if !found {
			t.Fatal("Expected a route for /a/b")
		}
		route.Handler(nil, nil)
		if hit != "literal" {
			t.Errorf("Expected %s, got %s", "literal", hit)
		}
		if len(params) != 0 {
			t.Errorf("Expected no params, got %v", params)
		}

		route, params, _ = router.Match("GET", segmentsOf("/a/c"))
		if route.Pattern != "/a/:id" || params["id"] != "c" {
			t.Errorf("Expected /a/:id with id=c, got %s %v", route.Pattern, params)
		}
	}
}

func TestRouterTieKeepsEarliest(t *testing.T) {
	router := NewRouter()
	router.GET("/x/:first", func(req *Request, res *Response) {})
	router.GET("/x/:second", func(req *Request, res *Response) {})

	route, params, found := router.Match("GET", segmentsOf("/x/1"))
	if !found || route.Pattern != "/x/:first" {
		t.Fatalf("Expected /x/:first, got %v", route)
	}
	if params["first"] != "1" {
		t.Errorf("Expected %s, got %s", "1", params["first"])
	}
}

func TestRouterScores(t *testing.T) {
	testCases := []struct {
		pattern string
		score   int
	}{
		{"/", 0},
		{"/a/b", 6},
		{"/a/:id", 5},
		{"/a/*rest", 4},
		{"/:x/:y/*z", 5},
	}

	for _, tc := range testCases {
		_, score, err := compilePattern(tc.pattern)
		if err != nil {
			t.Errorf("compilePattern(%q) failed: %v", tc.pattern, err)
		}
		if score != tc.score {
			t.Errorf("compilePattern(%q) score = %d, want %d", tc.pattern, score, tc.score)
		}
	}
}

func TestRouterWildcard(t *testing.T) {
	router := NewRouter()
	router.GET("/files/*rest", func(req *Request, res *Response) {})

	testCases := map[string]string{
		"/files":         "",
		"/files/a":       "a",
		"/files/a/b/c":   "a/b/c",
		"/files//a//b//": "a/b",
	}

	for p, expected := range testCases {
		_, params, found := router.Match("GET", segmentsOf(p))
		if !found {
			t.Errorf("Expected %s to match", p)
			continue
		}
		if params["rest"] != expected {
			t.Errorf("Match(%q) rest = %q, want %q", p, params["rest"], expected)
		}
	}

	if _, _, found := router.Match("GET", segmentsOf("/other")); found {
		t.Error("Expected /other not to match")
	}
}

func TestRouterRejectsInvalidPatterns(t *testing.T) {
	router := NewRouter()

	for _, pattern := range []string{"/a/*rest/b", "/a/:", "/*"} {
		err := router.GET(pattern, func(req *Request, res *Response) {})
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("Expected ErrInvalidPattern for %q, got %v", pattern, err)
		}
	}

	if len(router.Routes) != 0 {
		t.Errorf("Expected no routes, got %d", len(router.Routes))
	}
}

func TestRouterMethodAndLength(t *testing.T) {
	router := NewRouter()
	router.POST("/a/:id", func(req *Request, res *Response) {})

	if _, _, found := router.Match("GET", segmentsOf("/a/1")); found {
		t.Error("Expected GET not to match a POST route")
	}
	if _, _, found := router.Match("POST", segmentsOf("/a/1/extra")); found {
		t.Error("Expected longer path not to match")
	}
	if _, _, found := router.Match("POST", segmentsOf("/a")); found {
		t.Error("Expected shorter path not to match")
	}
}

func TestRouterGroup(t *testing.T) {
	router := NewRouter()
	var order []string

	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(req *Request, res *Response) {
				order = append(order, name)
				next(req, res)
			}
		}
	}

	err := router.Group("/api", func(group *Router) {
		group.GET("/users/:id", func(req *Request, res *Response) {
			order = append(order, "handler")
		})
	}, mark("group"))
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}

	route, params, found := router.Match("GET", segmentsOf("/api/users/7"))
	if !found {
		t.Fatal("Expected grouped route to match")
	}
	if params["id"] != "7" {
		t.Errorf("Expected %s, got %s", "7", params["id"])
	}

	route.Handler(nil, nil)
	if strings.Join(order, ",") != "group,handler" {
		t.Errorf("Expected %s, got %s", "group,handler", strings.Join(order, ","))
	}
}

func BenchmarkRouterMatch(b *testing.B) {
	router := NewRouter()
	router.GET("/", func(req *Request, res *Response) {})
	router.GET("/users/:id", func(req *Request, res *Response) {})
	router.GET("/users/:id/posts/:post", func(req *Request, res *Response) {})
	router.GET("/static/*path", func(req *Request, res *Response) {})
	segments := segmentsOf("/users/42/posts/7")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.Match("GET", segments)
	}
}
