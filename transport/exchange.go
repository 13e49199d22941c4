package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	web "github.com/freekieb7/espweb/http"
)

var (
	ErrMalformedRequest    = errors.New("transport: malformed request")
	ErrTooManyHeaders      = errors.New("transport: too many request headers")
	ErrUnsupportedEncoding = errors.New("transport: unsupported transfer encoding")
)

var (
	protocolHttp10  = []byte("HTTP/1.0")
	protocolHttp11  = []byte("HTTP/1.1")
	headerClose     = "close"
	headerKeepAlive = "keep-alive"
	chunkEndBytes   = []byte("0\r\n\r\n")
	crlfOnly        = []byte("\r\n")
)

type header struct {
	name  string
	value string
}

// connExchange is one request/response pair on a persistent connection.
type connExchange struct {
	ctx context.Context
	br  *bufio.Reader
	bw  *bufio.Writer

	method    string
	target    string
	protocol  []byte
	headers   []header
	length    int64
	remaining int64
	keepAlive bool

	status      int
	resHeaders  []header
	headWritten bool
	chunked     bool
	finished    bool
	broken      bool

	// unframed streams are delimited by closing the connection (HTTP/1.0)
	unframed bool
}

// readRequest parses the request line and headers. io.EOF means the client
// closed the connection between requests.
func readRequest(ctx context.Context, br *bufio.Reader, bw *bufio.Writer) (*connExchange, error) {
	line, err := br.ReadSlice('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		return nil, err
	}

	line = trimSpace(line)
	if len(line) == 0 {
		// tolerate a stray CRLF before the request line
		line, err = br.ReadSlice('\n')
		if err != nil {
			return nil, err
		}
		line = trimSpace(line)
	}

	method, rest, found := bytes.Cut(line, []byte(" "))
	if !found {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, line)
	}
	target, protocol, found := bytes.Cut(rest, []byte(" "))
	if !found || len(method) == 0 || len(target) == 0 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, line)
	}
	if !bytes.Equal(protocol, protocolHttp11) && !bytes.Equal(protocol, protocolHttp10) {
		return nil, fmt.Errorf("%w: protocol %q", ErrMalformedRequest, protocol)
	}

	ex := &connExchange{
		ctx:      ctx,
		br:       br,
		bw:       bw,
		method:   string(method),
		target:   string(target),
		protocol: bytes.Clone(protocol),
		length:   -1,
		status:   web.StatusOK,
	}

	for {
		line, err := br.ReadSlice('\n')
		if err != nil {
			if err == bufio.ErrBufferFull {
				return nil, fmt.Errorf("%w: header line too long", ErrMalformedRequest)
			}
			return nil, err
		}
		line = trimSpace(line)
		if len(line) == 0 {
			break
		}
		if len(ex.headers) >= MaxRequestHeaders {
			return nil, ErrTooManyHeaders
		}

		name, value, found := bytes.Cut(line, []byte(":"))
		if !found {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedRequest, line)
		}
		name = trimSpace(name)
		toLower(name)
		ex.headers = append(ex.headers, header{name: string(name), value: string(trimSpace(value))})
	}

	if encoding, found := ex.Header("Transfer-Encoding"); found && !strings.EqualFold(encoding, "identity") {
		return ex, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}

	if value, found := ex.Header("Content-Length"); found {
		length, err := atoi([]byte(value))
		if err != nil {
			return ex, fmt.Errorf("%w: content-length %q", ErrMalformedRequest, value)
		}
		ex.length = length
		ex.remaining = length
	}

	connection, _ := ex.Header("Connection")
	if bytes.Equal(ex.protocol, protocolHttp11) {
		ex.keepAlive = !strings.EqualFold(connection, headerClose)
	} else {
		ex.keepAlive = strings.EqualFold(connection, headerKeepAlive)
	}

	return ex, nil
}

func (ex *connExchange) Context() context.Context {
	return ex.ctx
}

func (ex *connExchange) Method() string {
	return ex.method
}

func (ex *connExchange) Target() string {
	return ex.target
}

// Header joins repeated fields; cookies with "; " and others with ", ".
func (ex *connExchange) Header(name string) (string, bool) {
	name = strings.ToLower(name)

	var value string
	found := false
	for _, h := range ex.headers {
		if h.name != name {
			continue
		}
		if !found {
			value, found = h.value, true
			continue
		}
		if name == "cookie" {
			value += "; " + h.value
		} else {
			value += ", " + h.value
		}
	}
	return value, found
}

func (ex *connExchange) ContentLength() int64 {
	return ex.length
}

func (ex *connExchange) ReadBody(p []byte) (int, error) {
	if ex.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > ex.remaining {
		p = p[:ex.remaining]
	}

	n, err := ex.br.Read(p)
	ex.remaining -= int64(n)
	if err == io.EOF && ex.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// discardBody skips what the handler left unread so the next request can be
// parsed. Bodies above MaxRequestSize close the connection instead.
func (ex *connExchange) discardBody() bool {
	if ex.remaining == 0 {
		return true
	}
	if ex.remaining > MaxRequestSize {
		return false
	}
	n, err := io.CopyN(io.Discard, ex.br, ex.remaining)
	ex.remaining -= n
	return err == nil
}

func (ex *connExchange) SetStatus(code int) {
	ex.status = code
}

func (ex *connExchange) SetHeader(name, value string) {
	kept := ex.resHeaders[:0]
	for _, h := range ex.resHeaders {
		if !strings.EqualFold(h.name, name) {
			kept = append(kept, h)
		}
	}
	ex.resHeaders = append(kept, header{name: name, value: value})
}

func (ex *connExchange) AddHeader(name, value string) {
	ex.resHeaders = append(ex.resHeaders, header{name: name, value: value})
}

// bodyAllowed reports whether the response may carry a body.
func (ex *connExchange) bodyAllowed() bool {
	if ex.method == "HEAD" {
		return false
	}
	return ex.status >= 200 && ex.status != web.StatusNoContent && ex.status != web.StatusNotModified
}

func (ex *connExchange) writeHead(contentLength int) error {
	var num [20]byte

	ex.bw.Write(protocolHttp11)
	ex.bw.WriteByte(' ')
	ex.bw.Write(num[:writeIntToBuffer(ex.status, num[:])])
	ex.bw.WriteByte(' ')
	ex.bw.WriteString(web.StatusText(ex.status))
	ex.bw.Write(crlfOnly)

	for _, h := range ex.resHeaders {
		if strings.EqualFold(h.name, "Content-Length") ||
			strings.EqualFold(h.name, "Transfer-Encoding") ||
			strings.EqualFold(h.name, "Connection") {
			continue
		}
		// a line break would start a header the handler never set
		if strings.ContainsAny(h.name, "\r\n") || strings.ContainsAny(h.value, "\r\n") {
			continue
		}
		ex.bw.WriteString(h.name)
		ex.bw.WriteString(": ")
		ex.bw.WriteString(h.value)
		ex.bw.Write(crlfOnly)
	}

	// HEAD answers carry the framing the GET would have had
	framed := ex.bodyAllowed() || ex.method == "HEAD"
	switch {
	case !framed:
	case contentLength >= 0:
		ex.bw.WriteString("Content-Length: ")
		ex.bw.Write(num[:writeIntToBuffer(contentLength, num[:])])
		ex.bw.Write(crlfOnly)
	case bytes.Equal(ex.protocol, protocolHttp10):
		ex.unframed = true
		ex.keepAlive = false
	default:
		ex.bw.WriteString("Transfer-Encoding: chunked\r\n")
	}

	if ex.keepAlive {
		if bytes.Equal(ex.protocol, protocolHttp10) {
			ex.bw.WriteString("Connection: keep-alive\r\n")
		}
	} else {
		ex.bw.WriteString("Connection: close\r\n")
	}

	_, err := ex.bw.Write(crlfOnly)
	ex.headWritten = true
	return err
}

func (ex *connExchange) Send(body []byte) error {
	if ex.headWritten {
		return web.ErrCommitted
	}

	ex.finished = true
	if err := ex.writeHead(len(body)); err != nil {
		return ex.fail(err)
	}
	if ex.bodyAllowed() {
		if _, err := ex.bw.Write(body); err != nil {
			return ex.fail(err)
		}
	}
	if err := ex.bw.Flush(); err != nil {
		return ex.fail(err)
	}
	return nil
}

func (ex *connExchange) SendChunk(p []byte) error {
	if ex.finished {
		return web.ErrCommitted
	}

	if !ex.headWritten {
		ex.chunked = true
		if err := ex.writeHead(-1); err != nil {
			return ex.fail(err)
		}
	}

	if len(p) == 0 {
		ex.finished = true
		if ex.bodyAllowed() && !ex.unframed {
			ex.bw.Write(chunkEndBytes)
		}
		if err := ex.bw.Flush(); err != nil {
			return ex.fail(err)
		}
		return nil
	}

	if !ex.bodyAllowed() {
		return nil
	}

	if ex.unframed {
		ex.bw.Write(p)
	} else {
		var size [16]byte
		ex.bw.Write(size[:writeHexToBuffer(len(p), size[:])])
		ex.bw.Write(crlfOnly)
		ex.bw.Write(p)
		ex.bw.Write(crlfOnly)
	}
	if err := ex.bw.Flush(); err != nil {
		return ex.fail(err)
	}
	return nil
}

func (ex *connExchange) fail(err error) error {
	ex.broken = true
	return err
}

// reusable reports whether the connection can carry another request.
func (ex *connExchange) reusable() bool {
	return ex.keepAlive && ex.finished && !ex.broken
}
