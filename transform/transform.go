// Package transform copies documents to a chunked sink while substituting
// {{key}} / {{{key}}} placeholders and injecting a snippet after the opening
// <head> tag. Input is consumed one byte at a time and never held in full.
package transform

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultChunkSize = 512
	// MaxKeyLength bounds the text buffered for one placeholder. Longer keys
	// are written out verbatim.
	MaxKeyLength = 128
)

var ErrTransfer = errors.New("transform: transfer failed")

// Resolver writes the value for key to w and reports whether it produced one.
type Resolver func(key string, w io.Writer) bool

type Transformer struct {
	Resolver    Resolver
	HeadSnippet string
	// ChunkSize is the output size that triggers a write to the sink.
	ChunkSize int
}

type braceState uint8

const (
	braceNone braceState = iota
	braceOne
	braceTwo
	braceInside
)

type headState uint8

const (
	headScan headState = iota
	headBoundary
	headAwaitClose
	headDone
)

const headToken = "<head"

type stream struct {
	dst     io.Writer
	out     []byte
	limit   int
	written int64
	err     error

	resolver Resolver
	value    bytes.Buffer
	brace    braceState
	triple   bool
	key      []byte
	closing  int

	snippet string
	head    headState
	headPos int
	quote   byte
	inject  bool
}

// Transform streams src into dst. Every Write on dst carries one chunk. It
// returns the number of bytes accepted by dst; sink failures wrap
// ErrTransfer.
func (t Transformer) Transform(dst io.Writer, src io.Reader) (int64, error) {
	limit := t.ChunkSize
	if limit <= 0 {
		limit = DefaultChunkSize
	}

	s := &stream{
		dst:      dst,
		out:      make([]byte, 0, limit+MaxKeyLength),
		limit:    limit,
		resolver: t.Resolver,
		snippet:  t.HeadSnippet,
	}
	if s.snippet == "" {
		s.head = headDone
	}

	br := bufio.NewReaderSize(src, limit)
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return s.written, err
		}

		s.process(c)
		if s.err != nil {
			return s.written, s.err
		}
	}

	s.finish()
	return s.written, s.err
}

func (s *stream) process(c byte) {
	s.placeholder(c)
	if s.head != headDone {
		s.observeHead(c)
	}
	if s.inject && s.brace == braceNone {
		s.inject = false
		s.emitString(s.snippet)
	}
}

func (s *stream) finish() {
	switch s.brace {
	case braceOne:
		s.emit('{')
	case braceTwo:
		s.emitString("{{")
	case braceInside:
		s.emitRaw()
	}
	s.brace = braceNone

	if s.inject {
		s.inject = false
		s.emitString(s.snippet)
	}
	s.flush()
}

func (s *stream) observeHead(c byte) {
	switch s.head {
	case headScan:
		if lower(c) == headToken[s.headPos] {
			s.headPos++
			if s.headPos == len(headToken) {
				s.head = headBoundary
			}
		} else if c == '<' {
			s.headPos = 1
		} else {
			s.headPos = 0
		}
	case headBoundary:
		switch {
		case c == '>':
			s.head, s.inject = headDone, true
		case c == '/' || isSpace(c):
			s.head = headAwaitClose
		default:
			// <header>, <heading> ...
			s.head = headScan
			s.headPos = 0
			if c == '<' {
				s.headPos = 1
			}
		}
	case headAwaitClose:
		switch {
		case s.quote != 0:
			if c == s.quote {
				s.quote = 0
			}
		case c == '"' || c == '\'':
			s.quote = c
		case c == '>':
			s.head, s.inject = headDone, true
		}
	}
}

func (s *stream) placeholder(c byte) {
	switch s.brace {
	case braceNone:
		if c == '{' && s.resolver != nil {
			s.brace = braceOne
			return
		}
		s.emit(c)
	case braceOne:
		if c == '{' {
			s.brace = braceTwo
			return
		}
		s.brace = braceNone
		s.emit('{')
		s.emit(c)
	case braceTwo:
		s.brace = braceInside
		s.key = s.key[:0]
		s.closing = 0
		s.triple = c == '{'
		if !s.triple {
			s.inside(c)
		}
	case braceInside:
		s.inside(c)
	}
}

func (s *stream) inside(c byte) {
	need := 2
	if s.triple {
		need = 3
	}

	if c == '}' {
		s.closing++
		if s.closing == need {
			s.substitute()
		}
		return
	}

	for ; s.closing > 0; s.closing-- {
		s.key = append(s.key, '}')
	}
	s.key = append(s.key, c)

	if len(s.key) > MaxKeyLength {
		s.emitRaw()
		s.brace = braceNone
	}
}

func (s *stream) substitute() {
	s.brace = braceNone

	key := strings.TrimSpace(string(s.key))
	if key == "" {
		s.emitRaw()
		return
	}

	s.value.Reset()
	if !s.resolver(key, &s.value) {
		s.emitRaw()
		return
	}

	if s.triple {
		s.emitBytes(s.value.Bytes())
	} else {
		s.emitEscaped(s.value.Bytes())
	}
}

// emitRaw writes the placeholder text seen so far unchanged.
func (s *stream) emitRaw() {
	if s.triple {
		s.emitString("{{{")
	} else {
		s.emitString("{{")
	}
	s.emitBytes(s.key)
	for ; s.closing > 0; s.closing-- {
		s.emit('}')
	}
}

func (s *stream) emit(c byte) {
	s.out = append(s.out, c)
	if len(s.out) >= s.limit {
		s.flush()
	}
}

func (s *stream) emitString(str string) {
	for i := 0; i < len(str); i++ {
		s.emit(str[i])
	}
}

func (s *stream) emitBytes(b []byte) {
	for _, c := range b {
		s.emit(c)
	}
}

func (s *stream) emitEscaped(b []byte) {
	for _, c := range b {
		switch c {
		case '&':
			s.emitString("&amp;")
		case '<':
			s.emitString("&lt;")
		case '>':
			s.emitString("&gt;")
		case '"':
			s.emitString("&quot;")
		case '\'':
			s.emitString("&#39;")
		default:
			s.emit(c)
		}
	}
}

func (s *stream) flush() {
	if len(s.out) == 0 || s.err != nil {
		return
	}

	n, err := s.dst.Write(s.out)
	s.written += int64(n)
	if err != nil {
		s.err = fmt.Errorf("%w: %w", ErrTransfer, err)
	}
	s.out = s.out[:0]
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
