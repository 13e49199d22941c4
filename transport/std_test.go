package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	web "github.com/freekieb7/espweb/http"
)

func TestHandlerServesRoute(t *testing.T) {
	handler := NewHandler(newTestEngine())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/hello/std", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if body := recorder.Body.String(); body != "hello std" {
		t.Errorf("Expected %s, got %s", "hello std", body)
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "text/plain" {
		t.Errorf("Expected %s, got %s", "text/plain", contentType)
	}
}

func TestHandlerStreams(t *testing.T) {
	handler := NewHandler(newTestEngine())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/stream", nil))

	if body := recorder.Body.String(); body != "first,second" {
		t.Errorf("Expected %s, got %s", "first,second", body)
	}
	if !recorder.Flushed {
		t.Error("Expected chunks to be flushed")
	}
}

func TestHandlerForm(t *testing.T) {
	handler := NewHandler(newTestEngine())

	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader("a=from+std"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if body := recorder.Body.String(); body != "from std" {
		t.Errorf("Expected %s, got %s", "from std", body)
	}
}

func TestHandlerCookies(t *testing.T) {
	engine := web.NewServer("test", web.WithLogger(quietLogger()))
	engine.Handle(http.MethodGet, "/", func(req *web.Request, res *web.Response) {
		a, _ := req.Cookie("a")
		b, _ := req.Cookie("b")
		res.SetCookie(web.NewCookie("seen", a+b))
		res.SendText(web.StatusOK, "text/plain", "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Add("Cookie", "a=1")
	req.Header.Add("Cookie", "b=2")

	recorder := httptest.NewRecorder()
	NewHandler(engine).ServeHTTP(recorder, req)

	expected := "seen=12; Path=/; SameSite=Lax"
	if cookie := recorder.Header().Get("Set-Cookie"); cookie != expected {
		t.Errorf("Expected %s, got %s", expected, cookie)
	}
}
