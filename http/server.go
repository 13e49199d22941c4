package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/freekieb7/espweb/filesystem"
	"github.com/freekieb7/espweb/transform"
)

const (
	DefaultMaxBodySize = 8 * 1024
	DefaultChunkSize   = transform.DefaultChunkSize
)

type Config struct {
	// MaxBodySize caps form, multipart and Body reads.
	MaxBodySize int64
	// ChunkSize is the flush threshold for streamed responses.
	ChunkSize int
	Session   SessionOptions
}

func DefaultConfig() Config {
	return Config{
		MaxBodySize: DefaultMaxBodySize,
		ChunkSize:   DefaultChunkSize,
		Session:     DefaultSessionOptions(),
	}
}

// ErrorRenderer renders the body of error responses. The status is fixed by
// the caller.
type ErrorRenderer func(req *Request, res *Response, code int, message string)

type Option func(server *Server)

func WithConfig(config Config) Option {
	return func(server *Server) {
		server.Config = config
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(server *Server) {
		server.Logger = logger
	}
}

func WithErrorRenderer(renderer ErrorRenderer) Option {
	return func(server *Server) {
		server.errorRenderer = renderer
	}
}

// Server dispatches requests handed over by a transport. Routes, mounts and
// handlers are registered before serving starts.
type Server struct {
	Name   string
	Router Router
	Config Config
	Logger *slog.Logger

	notFound      Handler
	errorRenderer ErrorRenderer
	mounts        []*mount
	telemetry     *serverTelemetry
}

func NewServer(name string, options ...Option) *Server {
	server := &Server{
		Name:   name,
		Router: NewRouter(),
		Config: DefaultConfig(),
		Logger: slog.Default(),
	}

	for _, option := range options {
		option(server)
	}

	if server.Logger == nil {
		server.Logger = slog.Default()
	}
	if server.Config.ChunkSize <= 0 {
		server.Config.ChunkSize = DefaultChunkSize
	}
	if server.Config.Session.CookieName == "" {
		server.Config.Session = DefaultSessionOptions()
	}
	server.telemetry = newServerTelemetry(name)

	return server
}

// Handle registers a route; an invalid pattern is logged and returned.
func (s *Server) Handle(method, pattern string, handler Handler, middleware ...Middleware) error {
	if err := s.Router.Add(method, pattern, handler, middleware...); err != nil {
		s.Logger.Warn("route registration rejected", "method", method, "pattern", pattern, "error", err)
		return err
	}
	return nil
}

// NotFound registers the catch-all handler for requests nothing else
// answered.
func (s *Server) NotFound(handler Handler) {
	s.notFound = handler
}

func (s *Server) SetErrorRenderer(renderer ErrorRenderer) {
	s.errorRenderer = renderer
}

func (s *Server) SetMaxBodySize(size int64) {
	s.Config.MaxBodySize = size
}

// ServeStatic mounts the subtree basePath of fsys below prefix. handler may
// be nil.
func (s *Server) ServeStatic(prefix string, fsys filesystem.Filesystem, basePath string, handler StaticHandler) {
	prefix, _ = NormalizePath(prefix)
	s.mounts = append(s.mounts, &mount{
		prefix:   prefix,
		fs:       fsys,
		basePath: basePath,
		handler:  handler,
	})

	// longest prefix first, registration order among equals
	sort.SliceStable(s.mounts, func(i, j int) bool {
		return len(s.mounts[i].prefix) > len(s.mounts[j].prefix)
	})
}

// ServeStaticMemory mounts an in-memory file table below prefix.
func (s *Server) ServeStaticMemory(prefix string, files []filesystem.MemoryFile, handler StaticHandler) {
	s.ServeStatic(prefix, filesystem.NewMemoryFileSystem(files), "/", handler)
}

// Dispatch handles one request. Whatever the handlers do, exactly one
// response is committed before it returns.
func (s *Server) Dispatch(ex Exchange) {
	start := time.Now()

	ctx := context.Background()
	if carrier, ok := ex.(interface{ Context() context.Context }); ok && carrier.Context() != nil {
		ctx = carrier.Context()
	}
	ctx, span := s.telemetry.start(ctx, ex.Method())
	defer span.End()

	req := newRequest(ctx, s, ex)
	res := newResponse(s, req, ex)
	req.res = res

	defer func() {
		if recovered := recover(); recovered != nil {
			s.Logger.ErrorContext(ctx, "handler panic",
				"panic", fmt.Sprint(recovered),
				"path", req.path,
				"request_id", req.id,
			)
			if !res.committed {
				res.SendError(StatusInternalServerError, "")
			}
		}
		if res.chunked {
			res.EndChunked()
		}

		s.telemetry.finish(ctx, span, req, res, time.Since(start))
		s.Logger.DebugContext(ctx, "request served",
			"method", req.method,
			"path", req.path,
			"status", res.status,
			"request_id", req.id,
			"duration", time.Since(start),
		)
	}()

	s.dispatch(req, res)
}

func (s *Server) dispatch(req *Request, res *Response) {
	if req.method == http.MethodGet && s.serveStatic(req, res) {
		return
	}

	if route, params, found := s.Router.Match(req.method, req.segments); found {
		req.route = route
		req.params = params

		route.Handler(req, res)
		if !res.committed {
			s.Logger.WarnContext(req.Context(), "handler returned without a response",
				"pattern", route.Pattern,
				"request_id", req.id,
			)
			res.SendError(StatusInternalServerError, "")
		}
		return
	}

	if s.notFound != nil {
		s.notFound(req, res)
		if !res.committed {
			res.SendError(StatusNotFound, "")
		}
		return
	}

	res.SendError(StatusNotFound, "")
}

// serveStatic answers from the first mount that claims the path. A mount
// without its own handler lets misses fall through.
func (s *Server) serveStatic(req *Request, res *Response) bool {
	for _, m := range s.mounts {
		rel, ok := m.relative(req.path, req.trailingSlash)
		if !ok {
			continue
		}

		info, err := m.resolve(req.path, rel)
		if err != nil {
			s.Logger.ErrorContext(req.Context(), "static lookup failed",
				"prefix", m.prefix,
				"path", rel,
				"error", err,
			)
			res.SendError(StatusInternalServerError, "")
			return true
		}

		if m.handler == nil && !info.Exists {
			continue
		}

		res.setStatic(info, m.fs)
		if m.handler != nil {
			m.handler(&res.static.info, req, res)
			if res.committed {
				return true
			}
		}

		if res.static.info.Exists {
			res.SendStatic()
		} else {
			res.SendError(StatusNotFound, "")
		}
		return true
	}

	return false
}
