package http

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/freekieb7/espweb/filesystem"
	"github.com/freekieb7/espweb/transform"
)

type header struct {
	name  string
	value string
}

type staticSource struct {
	info StaticInfo
	fs   filesystem.Filesystem
}

// Response builds the answer to one request. The first send commits status
// and headers; from then on they can no longer change.
type Response struct {
	ex     Exchange
	server *Server
	req    *Request

	status    int
	headers   []header
	committed bool
	chunked   bool
	// pinned forces the status while an ErrorRenderer runs
	pinned int
	failed bool

	resolver transform.Resolver
	snippet  string
	static   *staticSource
}

func newResponse(server *Server, req *Request, ex Exchange) *Response {
	return &Response{
		ex:     ex,
		server: server,
		req:    req,
		status: StatusOK,
	}
}

func (res *Response) Committed() bool {
	return res.committed
}

func (res *Response) Status() int {
	return res.status
}

func (res *Response) SetStatus(code int) error {
	if res.committed {
		return ErrCommitted
	}
	res.status = code
	return nil
}

// SetHeader replaces every value of name.
func (res *Response) SetHeader(name, value string) error {
	if res.committed {
		return ErrCommitted
	}
	if !validHeader(name, value) {
		return ErrInvalidHeader
	}

	res.dropHeader(name)
	res.headers = append(res.headers, header{name: name, value: value})
	return nil
}

func (res *Response) AddHeader(name, value string) error {
	if res.committed {
		return ErrCommitted
	}
	if !validHeader(name, value) {
		return ErrInvalidHeader
	}
	res.headers = append(res.headers, header{name: name, value: value})
	return nil
}

// validHeader rejects CR and LF, which would end the header line early.
func validHeader(name, value string) bool {
	return !strings.ContainsAny(name, "\r\n") && !strings.ContainsAny(value, "\r\n")
}

// Header returns the first pending value of name.
func (res *Response) Header(name string) (string, bool) {
	for _, h := range res.headers {
		if strings.EqualFold(h.name, name) {
			return h.value, true
		}
	}
	return "", false
}

func (res *Response) SetCookie(cookie Cookie) error {
	if err := cookie.Valid(); err != nil {
		return err
	}
	if res.committed {
		res.server.Logger.WarnContext(res.req.Context(), "set-cookie after commit",
			"cookie", cookie.Name,
			"request_id", res.req.ID(),
		)
		return ErrCommitted
	}
	return res.AddHeader("Set-Cookie", cookie.String())
}

// ClearCookie asks the client to drop the cookie name set for path.
func (res *Response) ClearCookie(name, path string) error {
	cookie := NewCookie(name, "")
	cookie.Path = path
	cookie.Delete()
	return res.SetCookie(cookie)
}

func (res *Response) SetTemplateHandler(resolver transform.Resolver) {
	res.resolver = resolver
}

func (res *Response) ClearTemplateHandler() {
	res.resolver = nil
}

// SetHeadInjection sets the snippet written right after the opening <head>
// tag of HTML sent through this response.
func (res *Response) SetHeadInjection(snippet string) {
	res.snippet = snippet
}

func (res *Response) ClearHeadInjection() {
	res.snippet = ""
}

// StaticInfo returns the static lookup attached to this response, if any.
func (res *Response) StaticInfo() (StaticInfo, bool) {
	if res.static == nil {
		return StaticInfo{}, false
	}
	return res.static.info, true
}

func (res *Response) setStatic(info StaticInfo, fsys filesystem.Filesystem) {
	res.static = &staticSource{info: info, fs: fsys}
}

func (res *Response) commit(code int, contentType string) error {
	if res.committed {
		return ErrCommitted
	}
	if res.pinned != 0 {
		code = res.pinned
	}
	if contentType != "" {
		res.SetHeader("Content-Type", contentType)
	}

	res.ex.SetStatus(code)
	for _, h := range res.headers {
		if strings.EqualFold(h.name, "Set-Cookie") {
			res.ex.AddHeader(h.name, h.value)
		} else {
			res.ex.SetHeader(h.name, h.value)
		}
	}

	res.status = code
	res.committed = true
	return nil
}

func (res *Response) transferFailed(err error) error {
	res.failed = true
	res.server.Logger.ErrorContext(res.req.Context(), "response transfer failed",
		"error", err,
		"path", res.req.Path(),
		"request_id", res.req.ID(),
	)
	return fmt.Errorf("%w: %w", ErrTransfer, err)
}

func (res *Response) Send(code int, contentType string, body []byte) error {
	if err := res.commit(code, contentType); err != nil {
		return err
	}
	if err := res.ex.Send(body); err != nil {
		return res.transferFailed(err)
	}
	return nil
}

func (res *Response) SendText(code int, contentType, text string) error {
	return res.Send(code, contentType, []byte(text))
}

// SendHTML sends html, streaming it through the template resolver and head
// injection when either is configured.
func (res *Response) SendHTML(code int, html string) error {
	if res.resolver == nil && res.snippet == "" {
		return res.Send(code, "text/html", []byte(html))
	}
	if res.committed {
		return ErrCommitted
	}
	return res.streamTransformed(code, "text/html", strings.NewReader(html))
}

func (res *Response) BeginChunked(code int, contentType string) error {
	if err := res.commit(code, contentType); err != nil {
		return err
	}
	res.chunked = true
	return nil
}

// SendChunk writes p as one chunk. Empty chunks are skipped; use EndChunked
// to finish the body.
func (res *Response) SendChunk(p []byte) error {
	if !res.chunked {
		return ErrNotChunked
	}
	if res.failed {
		return ErrTransfer
	}
	if len(p) == 0 {
		return nil
	}
	if err := res.ex.SendChunk(p); err != nil {
		return res.transferFailed(err)
	}
	return nil
}

func (res *Response) SendChunkString(s string) error {
	return res.SendChunk([]byte(s))
}

func (res *Response) EndChunked() error {
	if !res.chunked {
		return ErrNotChunked
	}
	res.chunked = false
	if res.failed {
		return ErrTransfer
	}
	if err := res.ex.SendChunk(nil); err != nil {
		return res.transferFailed(err)
	}
	return nil
}

// Redirect sends an empty response with a Location header. A zero code
// means 302 Found.
func (res *Response) Redirect(location string, code int) error {
	if code == 0 {
		code = StatusFound
	}
	if err := res.SetHeader("Location", location); err != nil {
		return err
	}
	return res.Send(code, "", nil)
}

// SendError answers with code. A registered ErrorRenderer renders the body
// but cannot change the status; without one, or when the renderer sends
// nothing, message (or the status text) is sent as plain text.
func (res *Response) SendError(code int, message string) error {
	if res.committed {
		return ErrCommitted
	}
	if message == "" {
		message = StatusText(code)
	}

	if renderer := res.server.errorRenderer; renderer != nil {
		res.pinned = code
		renderer(res.req, res, code, message)
		res.pinned = 0
		if res.committed {
			if res.chunked {
				return res.EndChunked()
			}
			return nil
		}
	}

	return res.SendText(code, "text/plain", message)
}

// SendStatic sends the resource resolved for this request.
func (res *Response) SendStatic() error {
	if res.static == nil {
		res.SendError(StatusInternalServerError, "")
		return ErrNoStaticSource
	}

	info := res.static.info
	if !info.Exists {
		return res.SendError(StatusNotFound, "")
	}

	return res.sendResource(res.static.fs, info.FSPath, info.ContentType(), info.IsGzipped)
}

// SendFile sends p from fsys. A .gz suffix marks the content as gzip
// encoded; the type comes from the name without it.
func (res *Response) SendFile(fsys filesystem.Filesystem, p string) error {
	exists, err := fsys.FileExists(p)
	if err != nil {
		res.server.Logger.ErrorContext(res.req.Context(), "stat file failed", "error", err, "file", p)
		return res.SendError(StatusInternalServerError, "")
	}
	if !exists {
		return res.SendError(StatusNotFound, "")
	}

	return res.sendResource(fsys, p, MimeType(p), strings.HasSuffix(p, ".gz"))
}

func (res *Response) sendResource(fsys filesystem.Filesystem, p, contentType string, gzipped bool) error {
	file, err := fsys.Open(p)
	if err != nil {
		if errors.Is(err, filesystem.ErrFileNotFound) {
			return res.SendError(StatusNotFound, "")
		}
		res.server.Logger.ErrorContext(res.req.Context(), "open file failed", "error", err, "file", p)
		return res.SendError(StatusInternalServerError, "")
	}
	defer filesystem.Close(file)

	if gzipped {
		if err := res.SetHeader("Content-Encoding", "gzip"); err != nil {
			return err
		}
	}

	if !gzipped && isHTML(contentType) && (res.resolver != nil || res.snippet != "") {
		return res.streamTransformed(StatusOK, contentType, file)
	}

	if whole, ok := file.(interface{ Bytes() []byte }); ok {
		return res.Send(StatusOK, contentType, whole.Bytes())
	}

	w := chunkWriter{res: res, code: StatusOK, contentType: contentType}
	buf := make([]byte, res.server.Config.ChunkSize)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			res.server.Logger.ErrorContext(res.req.Context(), "read file failed", "error", err, "file", p)
			return res.sourceFailed(err)
		}
	}

	return w.finish()
}

// streamTransformed sends src through the template transformer. The head is
// committed with the first output bytes.
func (res *Response) streamTransformed(code int, contentType string, src io.Reader) error {
	transformer := transform.Transformer{
		Resolver:    res.resolver,
		HeadSnippet: res.snippet,
		ChunkSize:   res.server.Config.ChunkSize,
	}

	w := chunkWriter{res: res, code: code, contentType: contentType}
	if _, err := transformer.Transform(w, src); err != nil {
		if res.failed {
			res.chunked = false
			return err
		}
		res.server.Logger.ErrorContext(res.req.Context(), "transform source failed", "error", err)
		return res.sourceFailed(err)
	}

	return w.finish()
}

// sourceFailed handles a read error of the content being sent. Before any
// byte went out the answer becomes a 500; afterwards the body stays
// truncated.
func (res *Response) sourceFailed(err error) error {
	if !res.committed {
		res.dropHeader("Content-Encoding")
		res.SendError(StatusInternalServerError, "")
		return err
	}
	res.failed = true
	res.chunked = false
	return err
}

func (res *Response) dropHeader(name string) {
	kept := res.headers[:0]
	for _, h := range res.headers {
		if !strings.EqualFold(h.name, name) {
			kept = append(kept, h)
		}
	}
	res.headers = kept
}

// chunkWriter begins the chunked response on its first non-empty write.
type chunkWriter struct {
	res         *Response
	code        int
	contentType string
}

func (w chunkWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !w.res.committed {
		if err := w.res.BeginChunked(w.code, w.contentType); err != nil {
			return 0, err
		}
	}
	if err := w.res.SendChunk(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// finish ends the body, or sends an empty one when nothing was written.
func (w chunkWriter) finish() error {
	if !w.res.committed {
		return w.res.Send(w.code, w.contentType, nil)
	}
	return w.res.EndChunked()
}
