package http

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/freekieb7/espweb/session"
	"github.com/google/uuid"
)

// Request is the per-request view handed to handlers. Derived views (query,
// form, multipart, cookies) are parsed on first use and cached; a failed
// parse leaves the view empty.
type Request struct {
	ex     Exchange
	server *Server
	res    *Response
	ctx    context.Context
	id     string

	method        string
	target        string
	path          string
	segments      []string
	trailingSlash bool
	params        Params
	route         *Route

	query        map[string]string
	form         map[string]string
	formParsed   bool
	fields       []MultipartField
	fieldsParsed bool
	fieldsErr    error
	cookies      map[string]string
	body         []byte
	bodyErr      error
	bodyRead     bool
	overflow     bool
	session      *session.Info
}

func newRequest(ctx context.Context, server *Server, ex Exchange) *Request {
	target := ex.Target()
	path, segments := NormalizePath(target)

	return &Request{
		ex:            ex,
		server:        server,
		ctx:           ctx,
		id:            uuid.NewString(),
		method:        ex.Method(),
		target:        target,
		path:          path,
		segments:      segments,
		trailingSlash: rawPathHasTrailingSlash(target),
	}
}

// ID is a random identifier used to correlate logs and spans.
func (req *Request) ID() string {
	return req.id
}

func (req *Request) Context() context.Context {
	if req.ctx == nil {
		return context.Background()
	}
	return req.ctx
}

func (req *Request) Method() string {
	return req.method
}

func (req *Request) Target() string {
	return req.target
}

func (req *Request) Path() string {
	return req.path
}

func (req *Request) Segments() []string {
	return req.segments
}

func (req *Request) Header(name string) (string, bool) {
	return req.ex.Header(name)
}

// Pattern is the pattern of the matched route, empty outside of routes.
func (req *Request) Pattern() string {
	if req.route == nil {
		return ""
	}
	return req.route.Pattern
}

func (req *Request) Param(name string) (string, bool) {
	value, found := req.params[name]
	return value, found
}

func (req *Request) Params() Params {
	return req.params
}

func (req *Request) Query(name string) (string, bool) {
	value, found := req.QueryValues()[name]
	return value, found
}

func (req *Request) QueryValues() map[string]string {
	if req.query == nil {
		req.query = ParseQuery(rawQuery(req.target))
	}
	return req.query
}

func (req *Request) Cookie(name string) (string, bool) {
	value, found := req.Cookies()[name]
	return value, found
}

func (req *Request) Cookies() map[string]string {
	if req.cookies == nil {
		header, _ := req.Header("Cookie")
		req.cookies = ParseCookies(header)
	}
	return req.cookies
}

// Overflowed reports whether a body parse was refused for exceeding the
// configured size.
func (req *Request) Overflowed() bool {
	return req.overflow
}

// Body reads the whole body, at most Config.MaxBodySize bytes. A larger
// body answers the request with 413 and returns ErrBodyTooLarge.
func (req *Request) Body() ([]byte, error) {
	if req.bodyRead {
		return req.body, req.bodyErr
	}
	req.bodyRead = true

	limit := req.server.Config.MaxBodySize
	if length := req.ex.ContentLength(); length > limit {
		req.bodyErr = ErrBodyTooLarge
	} else {
		body, err := io.ReadAll(io.LimitReader(bodyReader{req.ex}, limit+1))
		switch {
		case err != nil:
			req.bodyErr = err
		case int64(len(body)) > limit:
			req.bodyErr = ErrBodyTooLarge
		default:
			req.body = body
		}
	}

	if req.bodyErr == ErrBodyTooLarge {
		req.refuseBody()
	}

	return req.body, req.bodyErr
}

func (req *Request) refuseBody() {
	req.overflow = true
	req.server.telemetry.overflow(req.Context(), req.path)
	req.logger().WarnContext(req.Context(), "request body too large",
		"path", req.path,
		"limit", req.server.Config.MaxBodySize,
		"request_id", req.id,
	)

	if req.res != nil && !req.res.Committed() {
		req.res.SendError(StatusRequestEntityTooLarge, "")
	}
}

func (req *Request) mediaType() (string, map[string]string) {
	header, found := req.Header("Content-Type")
	if !found {
		return "", nil
	}

	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType, _, _ = strings.Cut(header, ";")
		return strings.ToLower(strings.TrimSpace(mediaType)), nil
	}
	return mediaType, params
}

func (req *Request) logger() *slog.Logger {
	if req.server == nil || req.server.Logger == nil {
		return slog.Default()
	}
	return req.server.Logger
}
