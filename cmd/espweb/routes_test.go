package main

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/freekieb7/espweb/config"
	"github.com/freekieb7/espweb/http"
	"github.com/freekieb7/espweb/session/storage"
	"github.com/freekieb7/espweb/test"
	"github.com/freekieb7/espweb/transport"
	"github.com/tidwall/gjson"
)

func newTestSite(t *testing.T) (*httptest.Server, *nethttp.Client) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := newEngine(config.NewConfig(), storage.NewMemoryStore(), http.WithLogger(logger))
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}

	server := httptest.NewServer(transport.NewHandler(engine))
	t.Cleanup(server.Close)

	client := &nethttp.Client{
		Transport: &nethttp.Transport{DisableCompression: true},
		CheckRedirect: func(req *nethttp.Request, via []*nethttp.Request) error {
			return nethttp.ErrUseLastResponse
		},
	}
	return server, client
}

func fetch(t *testing.T, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, string) {
	t.Helper()

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	return resp, string(body)
}

func get(t *testing.T, server *httptest.Server, client *nethttp.Client, path string) (*nethttp.Response, string) {
	req, _ := nethttp.NewRequest("GET", server.URL+path, nil)
	return fetch(t, client, req)
}

func TestRootRedirects(t *testing.T) {
	server, client := newTestSite(t)

	resp, _ := get(t, server, client, "/")
	test.Equal(t, 302, resp.StatusCode)
	test.Equal(t, "/site/", resp.Header.Get("Location"))
}

func TestSitePageIsRendered(t *testing.T) {
	server, client := newTestSite(t)

	resp, body := get(t, server, client, "/site/")
	test.Equal(t, 200, resp.StatusCode)
	test.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	for _, want := range []string{
		"<title>espweb</title>",
		"<p><em>embedded assets</em></p>",
		"Served by espweb {{missing.key}}",
		bootSnippet,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected body to contain %q, got %s", want, body)
		}
	}
}

func TestPublicAssets(t *testing.T) {
	server, client := newTestSite(t)

	resp, _ := get(t, server, client, "/app.js")
	test.Equal(t, 200, resp.StatusCode)
	test.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	test.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))

	resp, body := get(t, server, client, "/style.css")
	test.Equal(t, 200, resp.StatusCode)
	test.Equal(t, "", resp.Header.Get("Content-Encoding"))
	test.True(t, len(body) > 0, "stylesheet has content")

	resp, _ = get(t, server, client, "/docs/")
	test.Equal(t, 200, resp.StatusCode)
}

func TestRoutes(t *testing.T) {
	server, client := newTestSite(t)

	resp, body := get(t, server, client, "/hello/gopher%20one")
	test.Equal(t, 200, resp.StatusCode)
	test.Equal(t, "hello gopher one", body)

	resp, body = get(t, server, client, "/api/time")
	test.Equal(t, 200, resp.StatusCode)
	test.True(t, gjson.Get(body, "time").Exists(), "time is reported")
	test.True(t, gjson.Get(body, "request_id").String() != "", "request id is reported")

	resp, body = get(t, server, client, "/stream")
	test.Equal(t, 200, resp.StatusCode)
	test.Equal(t, "*\n**\n***\n****\n*****\n", body)
}

func TestNotFound(t *testing.T) {
	server, client := newTestSite(t)

	resp, body := get(t, server, client, "/nope")
	test.Equal(t, 404, resp.StatusCode)
	test.Equal(t, "no such page: /nope", body)

	resp, body = get(t, server, client, "/api/nope")
	test.Equal(t, 404, resp.StatusCode)
	test.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	test.Equal(t, int64(404), gjson.Get(body, "status").Int())
	test.Equal(t, "/api/nope", gjson.Get(body, "path").String())
}

func TestFormEcho(t *testing.T) {
	server, client := newTestSite(t)

	form := url.Values{"message": {"hi there"}, "a.b": {"dotted"}}
	req, _ := nethttp.NewRequest("POST", server.URL+"/form", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body := fetch(t, client, req)
	test.Equal(t, 200, resp.StatusCode)
	test.Equal(t, "hi there", gjson.Get(body, "message").String())
	test.Equal(t, "dotted", gjson.Get(body, `a\.b`).String())
}

func TestUploadListsParts(t *testing.T) {
	server, client := newTestSite(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("note", "hello")
	part, _ := writer.CreateFormFile("file", "data.txt")
	part.Write([]byte("0123456789"))
	writer.Close()

	req, _ := nethttp.NewRequest("POST", server.URL+"/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, body := fetch(t, client, req)
	test.Equal(t, 200, resp.StatusCode)

	parts := gjson.Parse(body).Array()
	if len(parts) != 2 {
		t.Fatalf("Expected %d parts, got %d: %s", 2, len(parts), body)
	}
	test.Equal(t, "note", parts[0].Get("name").String())
	test.Equal(t, "data.txt", parts[1].Get("filename").String())
	test.Equal(t, int64(10), parts[1].Get("size").Int())
}

func TestSessionRoutes(t *testing.T) {
	server, client := newTestSite(t)

	resp, body := get(t, server, client, "/session/")
	test.Equal(t, 200, resp.StatusCode)
	id := gjson.Get(body, "id").String()
	test.True(t, id != "", "session id issued")
	test.Equal(t, int64(1), gjson.Get(body, "visits").Int())

	var cookie *nethttp.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("Expected a sid cookie")
	}
	test.Equal(t, id, cookie.Value)

	req, _ := nethttp.NewRequest("GET", server.URL+"/session/", nil)
	req.AddCookie(cookie)
	_, body = fetch(t, client, req)
	test.Equal(t, id, gjson.Get(body, "id").String())
	test.Equal(t, int64(2), gjson.Get(body, "visits").Int())

	req, _ = nethttp.NewRequest("POST", server.URL+"/session/rotate", nil)
	req.AddCookie(cookie)
	resp, body = fetch(t, client, req)
	test.Equal(t, 200, resp.StatusCode)
	test.True(t, gjson.Get(body, "id").String() != id, "rotation issues a new id")
	test.Equal(t, int64(2), gjson.Get(body, "visits").Int())
}
