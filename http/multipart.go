package http

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
)

const mimeMultipartFormData = "multipart/form-data"

var (
	crlf     = []byte("\r\n")
	crlfCrlf = []byte("\r\n\r\n")
)

type MultipartField struct {
	Name        string
	Filename    string
	ContentType string
	Size        int
	Data        []byte
}

// Part is one multipart section handed to a PartFunc. Its content can be
// read like any io.Reader or ignored.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Size        int

	r *bytes.Reader
}

func (p *Part) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// PartFunc receives each part in order and returns false to stop.
type PartFunc func(part *Part) bool

// ReadMultipart passes the parts of a multipart/form-data body to fn.
func (req *Request) ReadMultipart(fn PartFunc) error {
	if req.fieldsParsed {
		for _, field := range req.fields {
			part := &Part{
				Name:        field.Name,
				Filename:    field.Filename,
				ContentType: field.ContentType,
				Size:        field.Size,
				r:           bytes.NewReader(field.Data),
			}
			if !fn(part) {
				break
			}
		}
		return req.fieldsErr
	}

	mediaType, params := req.mediaType()
	if mediaType != mimeMultipartFormData || params["boundary"] == "" {
		return ErrNotMultipart
	}

	body, err := req.Body()
	if err != nil {
		return err
	}

	err = parseMultipart(body, params["boundary"], fn)
	if err != nil {
		req.logger().DebugContext(req.Context(), "multipart parse stopped",
			"error", err,
			"request_id", req.id,
		)
	}
	return err
}

// MultipartFields returns every part held in memory. Parts before a
// malformed section are kept.
func (req *Request) MultipartFields() []MultipartField {
	if req.fieldsParsed {
		return req.fields
	}

	fields := make([]MultipartField, 0)
	err := req.ReadMultipart(func(part *Part) bool {
		data := make([]byte, part.Size)
		part.Read(data)
		fields = append(fields, MultipartField{
			Name:        part.Name,
			Filename:    part.Filename,
			ContentType: part.ContentType,
			Size:        part.Size,
			Data:        data,
		})
		return true
	})

	req.fields = fields
	req.fieldsErr = err
	req.fieldsParsed = true
	return req.fields
}

func (req *Request) MultipartField(name string) (MultipartField, bool) {
	for _, field := range req.MultipartFields() {
		if field.Name == name {
			return field, true
		}
	}
	return MultipartField{}, false
}

func parseMultipart(body []byte, boundary string, fn PartFunc) error {
	delimiter := []byte("--" + boundary)
	closing := []byte("\r\n--" + boundary)

	start := bytes.Index(body, delimiter)
	if start < 0 {
		return fmt.Errorf("%w: no opening boundary", ErrMalformedMultipart)
	}
	pos := start + len(delimiter)

	for {
		rest := body[pos:]
		if bytes.HasPrefix(rest, []byte("--")) {
			return nil
		}
		if !bytes.HasPrefix(rest, crlf) {
			return fmt.Errorf("%w: boundary not followed by CRLF", ErrMalformedMultipart)
		}
		pos += len(crlf)

		var header []byte
		if bytes.HasPrefix(body[pos:], crlf) {
			pos += len(crlf)
		} else {
			end := bytes.Index(body[pos:], crlfCrlf)
			if end < 0 {
				return fmt.Errorf("%w: unterminated part header", ErrMalformedMultipart)
			}
			header = body[pos : pos+end]
			pos += end + len(crlfCrlf)
		}

		end := bytes.Index(body[pos:], closing)
		if end < 0 {
			return fmt.Errorf("%w: part is never closed", ErrMalformedMultipart)
		}
		content := body[pos : pos+end]
		pos += end + len(closing)

		part := &Part{Size: len(content), r: bytes.NewReader(content)}
		parsePartHeader(header, part)

		if !fn(part) {
			return nil
		}
	}
}

func parsePartHeader(header []byte, part *Part) {
	for _, line := range strings.Split(string(header), "\r\n") {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-disposition":
			if _, params, err := mime.ParseMediaType(value); err == nil {
				part.Name = params["name"]
				part.Filename = params["filename"]
			}
		case "content-type":
			part.ContentType = value
		}
	}
}
