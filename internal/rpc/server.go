package rpc

import (
	"net"
	"sync"

	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/wire"
)

// RequestHandler answers a message whose Type.RequiresResponse() is true.
type RequestHandler func(*Connection, *wire.Message) (*wire.Message, error)

// NotifyHandler reacts to a fire-and-forget message.
type NotifyHandler func(*Connection, *wire.Message)

// Server accepts connections and dispatches each framed message to a
// handler registered by message type, one acceptor goroutine plus one
// per-connection goroutine draining that connection's reactor loop
// (spec.md §4.9 "TCP reactor", §5 "each connection owns an actor").
type Server struct {
	mu       sync.RWMutex
	requests map[wire.Type]RequestHandler
	notifies map[wire.Type]NotifyHandler

	ln net.Listener
	wg sync.WaitGroup

	closeMu sync.Mutex
	closed  bool
}

// NewServer returns a Server with no handlers registered.
func NewServer() *Server {
	return &Server{
		requests: map[wire.Type]RequestHandler{},
		notifies: map[wire.Type]NotifyHandler{},
	}
}

// HandleRequest registers h for every incoming message of type t.
// Registering twice for the same type replaces the previous handler.
func (s *Server) HandleRequest(t wire.Type, h RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[t] = h
}

// HandleNotify registers h for every incoming notify-type message t.
func (s *Server) HandleNotify(t wire.Type, h NotifyHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifies[t] = h
}

// Serve accepts connections on ln until Close is called, handing each to
// its own goroutine. Serve blocks until the listener is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.ln = ln
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.closeMu.Lock()
			closed := s.closed
			s.closeMu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		c := newConnection(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(c)
		}()
	}
}

// Close stops accepting new connections and waits for in-flight connection
// goroutines to return.
func (s *Server) Close() error {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleConnection(c *Connection) {
	defer c.Close()
	log := logging.Named("rpc.server")
	for {
		msg, err := c.Recv()
		if err != nil {
			return
		}

		if msg.Type.RequiresResponse() {
			s.mu.RLock()
			h := s.requests[msg.Type]
			s.mu.RUnlock()
			if h == nil {
				log.Warn().Str("type", msg.Type.String()).Msg("no request handler registered")
				continue
			}
			resp, err := h(c, msg)
			if err != nil {
				log.Warn().Err(err).Str("type", msg.Type.String()).Msg("request handler error")
				continue
			}
			if resp != nil {
				if err := c.Send(resp); err != nil {
					return
				}
			}
			continue
		}

		s.mu.RLock()
		h := s.notifies[msg.Type]
		s.mu.RUnlock()
		if h != nil {
			h(c, msg)
		}
		if msg.Type == wire.TerminationNotify {
			return
		}
	}
}

