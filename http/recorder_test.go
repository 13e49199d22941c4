package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
)

var errSink = errors.New("sink closed")

// recorder is an in-memory Exchange that keeps everything the engine sends.
type recorder struct {
	method  string
	target  string
	headers map[string]string
	length  int64
	body    io.Reader

	status     int
	resHeaders []header
	heads      int
	chunked    bool
	ended      bool
	chunks     int
	failAfter  int
	out        bytes.Buffer
}

func newRecorder(method, target string, headers ...string) *recorder {
	rec := &recorder{
		method:    method,
		target:    target,
		headers:   map[string]string{},
		length:    -1,
		failAfter: -1,
	}
	for i := 0; i+1 < len(headers); i += 2 {
		rec.headers[strings.ToLower(headers[i])] = headers[i+1]
	}
	return rec
}

// withBody attaches a body with a declared length.
func (rec *recorder) withBody(contentType, body string) *recorder {
	rec.headers["content-type"] = contentType
	rec.body = strings.NewReader(body)
	rec.length = int64(len(body))
	return rec
}

func (rec *recorder) Method() string { return rec.method }
func (rec *recorder) Target() string { return rec.target }

func (rec *recorder) Header(name string) (string, bool) {
	value, found := rec.headers[strings.ToLower(name)]
	return value, found
}

func (rec *recorder) ContentLength() int64 { return rec.length }

func (rec *recorder) ReadBody(p []byte) (int, error) {
	if rec.body == nil {
		return 0, io.EOF
	}
	return rec.body.Read(p)
}

func (rec *recorder) SetStatus(code int) { rec.status = code }

func (rec *recorder) SetHeader(name, value string) {
	kept := rec.resHeaders[:0]
	for _, h := range rec.resHeaders {
		if !strings.EqualFold(h.name, name) {
			kept = append(kept, h)
		}
	}
	rec.resHeaders = append(kept, header{name: name, value: value})
}

func (rec *recorder) AddHeader(name, value string) {
	rec.resHeaders = append(rec.resHeaders, header{name: name, value: value})
}

func (rec *recorder) Send(body []byte) error {
	rec.heads++
	rec.out.Write(body)
	return nil
}

func (rec *recorder) SendChunk(p []byte) error {
	if !rec.chunked {
		rec.chunked = true
		rec.heads++
	}
	if len(p) == 0 {
		rec.ended = true
		return nil
	}
	if rec.failAfter >= 0 && rec.chunks >= rec.failAfter {
		return errSink
	}
	rec.chunks++
	rec.out.Write(p)
	return nil
}

func (rec *recorder) header(name string) string {
	for _, h := range rec.resHeaders {
		if strings.EqualFold(h.name, name) {
			return h.value
		}
	}
	return ""
}

func (rec *recorder) headerValues(name string) []string {
	var values []string
	for _, h := range rec.resHeaders {
		if strings.EqualFold(h.name, name) {
			values = append(values, h.value)
		}
	}
	return values
}

func (rec *recorder) text() string {
	return rec.out.String()
}

func newTestServer(options ...Option) *Server {
	options = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, options...)
	return NewServer("test", options...)
}

func serve(server *Server, rec *recorder) *recorder {
	server.Dispatch(rec)
	return rec
}
