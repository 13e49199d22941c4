package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	web "github.com/freekieb7/espweb/http"
)

type stdHandler struct {
	dispatcher Dispatcher
}

// NewHandler serves a Dispatcher behind net/http, so it can be wrapped by
// the usual net/http middleware.
func NewHandler(dispatcher Dispatcher) http.Handler {
	return stdHandler{dispatcher: dispatcher}
}

func (h stdHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ex := &stdExchange{w: w, r: r, status: http.StatusOK}
	h.dispatcher.Dispatch(ex)

	if !ex.written {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type stdExchange struct {
	w http.ResponseWriter
	r *http.Request

	status  int
	written bool
	ended   bool
}

func (ex *stdExchange) Context() context.Context {
	return ex.r.Context()
}

func (ex *stdExchange) Method() string {
	return ex.r.Method
}

func (ex *stdExchange) Target() string {
	if ex.r.RequestURI != "" {
		return ex.r.RequestURI
	}
	return ex.r.URL.RequestURI()
}

func (ex *stdExchange) Header(name string) (string, bool) {
	values := ex.r.Header.Values(name)
	if len(values) == 0 {
		return "", false
	}
	if strings.EqualFold(name, "Cookie") {
		return strings.Join(values, "; "), true
	}
	return strings.Join(values, ", "), true
}

func (ex *stdExchange) ContentLength() int64 {
	return ex.r.ContentLength
}

func (ex *stdExchange) ReadBody(p []byte) (int, error) {
	if ex.r.Body == nil {
		return 0, io.EOF
	}
	return ex.r.Body.Read(p)
}

func (ex *stdExchange) SetStatus(code int) {
	ex.status = code
}

func (ex *stdExchange) SetHeader(name, value string) {
	ex.w.Header().Set(name, value)
}

func (ex *stdExchange) AddHeader(name, value string) {
	ex.w.Header().Add(name, value)
}

func (ex *stdExchange) Send(body []byte) error {
	if ex.written {
		return web.ErrCommitted
	}
	ex.written, ex.ended = true, true

	ex.w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	ex.w.WriteHeader(ex.status)
	_, err := ex.w.Write(body)
	return err
}

func (ex *stdExchange) SendChunk(p []byte) error {
	if ex.ended {
		return web.ErrCommitted
	}
	if !ex.written {
		ex.written = true
		ex.w.Header().Del("Content-Length")
		ex.w.WriteHeader(ex.status)
	}
	if len(p) == 0 {
		ex.ended = true
		return nil
	}

	if _, err := ex.w.Write(p); err != nil {
		return err
	}
	if err := http.NewResponseController(ex.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
