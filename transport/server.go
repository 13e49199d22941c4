// Package transport feeds requests from the network into an espweb server.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	web "github.com/freekieb7/espweb/http"
)

const (
	MaxRequestSize          = 2 * 1024 * 1024 // 2MB
	DefaultReadBufferSize   = 4096
	DefaultWriteBufferSize  = 4096
	MaxRequestHeaders       = math.MaxUint8
	DefaultIdleTimeout      = 5 * time.Second
	acceptRetryDelay        = 50 * time.Millisecond
	shutdownPollingInterval = 100 * time.Millisecond
)

var ErrServerClosed = errors.New("transport: server closed")

// Dispatcher answers one exchange; *http.Server implements it.
type Dispatcher interface {
	Dispatch(ex web.Exchange)
}

// Server runs the HTTP/1.1 connection loop for a Dispatcher.
type Server struct {
	Dispatcher  Dispatcher
	Logger      *slog.Logger
	IdleTimeout time.Duration
	// BaseContext is the parent of every request context.
	BaseContext context.Context

	poolOnce sync.Once
	pool     *connPool

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[*connCtx]struct{}
	active    sync.WaitGroup
	closing   atomic.Bool
}

func NewServer(dispatcher Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Dispatcher:  dispatcher,
		Logger:      logger,
		IdleTimeout: DefaultIdleTimeout,
	}
}

func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(listener)
}

// Serve accepts connections until the listener fails or Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		listener.Close()
		return ErrServerClosed
	}
	if s.listeners == nil {
		s.listeners = make(map[net.Listener]struct{})
	}
	s.listeners[listener] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.listeners, listener)
		s.mu.Unlock()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			s.logger().Warn("accept connection failed", "error", err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		// Add must not race the Wait in Shutdown
		s.mu.Lock()
		if s.closing.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.active.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.active.Done()
			s.ServeConn(conn)
		}()
	}
}

// ServeConn serves requests from conn until the client closes it, a
// request asks for close, or the idle deadline passes.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()

	s.poolOnce.Do(func() { s.pool = newConnPool() })
	cc := s.pool.acquire(conn)
	defer s.pool.release(cc)

	s.track(cc, true)
	defer s.track(cc, false)

	ctx := s.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}

	idleTimeout := s.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	for {
		if s.closing.Load() {
			return
		}

		cc.idle.Store(true)
		conn.SetDeadline(time.Now().Add(idleTimeout))

		ex, err := readRequest(ctx, cc.reader, cc.writer)
		cc.idle.Store(false)
		if err != nil {
			s.rejectRequest(ex, cc, err)
			return
		}

		// handlers may stream for longer than the idle window
		conn.SetDeadline(time.Time{})

		s.Dispatcher.Dispatch(ex)

		if !ex.headWritten {
			ex.SetStatus(web.StatusInternalServerError)
			ex.Send(nil)
		}
		if !ex.finished {
			s.logger().Warn("chunked response left unterminated, closing connection",
				"target", ex.target,
			)
			return
		}
		if !ex.reusable() || !ex.discardBody() {
			return
		}
	}
}

func (s *Server) rejectRequest(ex *connExchange, cc *connCtx, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}

	s.logger().Debug("request rejected", "error", err)

	if ex == nil {
		ex = &connExchange{bw: cc.writer, protocol: protocolHttp11}
	}
	ex.keepAlive = false
	ex.resHeaders = nil
	ex.SetHeader("Content-Type", "text/plain")

	code := web.StatusBadRequest
	switch {
	case errors.Is(err, ErrUnsupportedEncoding):
		code = web.StatusNotImplemented
	case errors.Is(err, ErrTooManyHeaders):
		code = web.StatusRequestHeaderFieldsTooLarge
	}
	ex.SetStatus(code)
	ex.Send([]byte(web.StatusText(code)))
}

func (s *Server) track(cc *connCtx, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns == nil {
		s.conns = make(map[*connCtx]struct{})
	}
	if add {
		s.conns[cc] = struct{}{}
	} else {
		delete(s.conns, cc)
	}
}

// Shutdown stops accepting, wakes idle connections and waits for busy ones
// to finish their current request. When ctx ends first the remaining
// connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	for listener := range s.listeners {
		listener.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	ticker := time.NewTicker(shutdownPollingInterval)
	defer ticker.Stop()

	for {
		s.wakeIdle()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) wakeIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for cc := range s.conns {
		if cc.idle.Load() && cc.conn != nil {
			cc.conn.SetReadDeadline(time.Now())
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for cc := range s.conns {
		if cc.conn != nil {
			cc.conn.Close()
		}
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
