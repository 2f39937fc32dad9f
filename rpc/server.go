// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds handling of a single request.
const DefaultTimeout = 30 * time.Second

// HandlerFunc executes one method. The returned value is JSON-encoded into
// the response's result field; a returned *Error is sent verbatim, any
// other error becomes a CodeExecution response.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Server accepts framed connections and dispatches requests to registered
// method handlers.
type Server struct {
	log     *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	listener net.Listener
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer returns a server with no methods registered. log may be nil.
func NewServer(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		log:      log,
		timeout:  DefaultTimeout,
		handlers: make(map[string]HandlerFunc),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register binds method to fn, replacing any previous binding.
func (s *Server) Register(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// Serve accepts connections on l until Close is called. It blocks; callers
// run it in a goroutine.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.log.Info("rpc server listening", zap.String("addr", l.Addr().String()))
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting connections and waits for in-flight handlers.
func (s *Server) Close() {
	s.cancel()
	s.mu.RLock()
	l := s.listener
	s.mu.RUnlock()
	if l != nil {
		_ = l.Close()
	}
	s.wg.Wait()
}

// handleConn serves request frames on conn until the peer hangs up or a
// frame fails to parse.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		var req Request
		if err := ReadFrame(conn, &req); err != nil {
			return
		}

		resp := s.dispatch(&req)
		if err := WriteFrame(conn, resp); err != nil {
			s.log.Debug("rpc response write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(req *Request) *Response {
	s.mu.RLock()
	fn, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		return &Response{ID: req.ID, Error: &Error{
			Code:    CodeUnknownMethod,
			Message: "method not found",
		}}
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	result, err := fn(ctx, req.Params)
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return &Response{ID: req.ID, Error: rpcErr}
		}
		s.log.Debug("rpc method failed", zap.String("method", req.Method), zap.Error(err))
		return &Response{ID: req.ID, Error: &Error{
			Code:    CodeExecution,
			Message: "execution failed",
		}}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return &Response{ID: req.ID, Error: &Error{
			Code:    CodeExecution,
			Message: "result encoding failed",
		}}
	}
	return &Response{ID: req.ID, Result: encoded}
}
