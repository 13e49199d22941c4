package http

// Exchange is the transport side of one request/response pair. The engine
// owns it for the duration of a Dispatch call.
type Exchange interface {
	Method() string
	// Target is the raw request target including the query string.
	Target() string
	Header(name string) (string, bool)
	// ContentLength is the declared body size or -1 when unknown.
	ContentLength() int64
	// ReadBody reads up to len(p) body bytes and returns io.EOF at the end.
	ReadBody(p []byte) (int, error)

	SetStatus(code int)
	SetHeader(name, value string)
	AddHeader(name, value string)
	// Send writes the head and the complete body.
	Send(body []byte) error
	// SendChunk writes one chunk; the first call writes the head and a
	// zero-length chunk ends the body.
	SendChunk(p []byte) error
}

type bodyReader struct {
	ex Exchange
}

func (r bodyReader) Read(p []byte) (int, error) {
	return r.ex.ReadBody(p)
}
