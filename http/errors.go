package http

import "errors"

var (
	ErrCommitted          = errors.New("http: response already committed")
	ErrNotChunked         = errors.New("http: chunked response not started")
	ErrTransfer           = errors.New("http: transfer failed")
	ErrBodyTooLarge       = errors.New("http: request body too large")
	ErrMalformedMultipart = errors.New("http: malformed multipart body")
	ErrNotMultipart       = errors.New("http: request is not multipart/form-data")
	ErrNoStaticSource     = errors.New("http: response has no static source")
	ErrNoSession          = errors.New("http: no session started")
	ErrInvalidHeader      = errors.New("http: header contains a line break")
)
