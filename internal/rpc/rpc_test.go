package rpc

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/wire"
)

func startServer(t *testing.T, s *Server) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	return ln.Addr().String(), func() { s.Close() }
}

func TestEchoRequestGetsResponse(t *testing.T) {
	s := NewServer()
	s.HandleRequest(wire.EchoRequest, func(c *Connection, msg *wire.Message) (*wire.Message, error) {
		return &wire.Message{Type: wire.EchoResponse, Echo: &wire.EchoBody{Buf: msg.Echo.Buf}}, nil
	})
	addr, stop := startServer(t, s)
	defer stop()

	client, err := Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Request(&wire.Message{Type: wire.EchoRequest, Echo: &wire.EchoBody{Buf: []byte("ping")}})
	require.NoError(t, err)
	assert.Equal(t, wire.EchoResponse, resp.Type)
	assert.Equal(t, []byte("ping"), resp.Echo.Buf)
}

func TestNotifyDoesNotBlockForResponse(t *testing.T) {
	s := NewServer()
	received := make(chan struct{}, 1)
	s.HandleNotify(wire.HeartBeatNotify, func(c *Connection, msg *wire.Message) {
		received <- struct{}{}
	})
	addr, stop := startServer(t, s)
	defer stop()

	client, err := Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Notify(&wire.Message{Type: wire.HeartBeatNotify}))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("notify handler never ran")
	}
}

func TestTerminationNotifyEndsConnectionLoop(t *testing.T) {
	s := NewServer()
	addr, stop := startServer(t, s)
	defer stop()

	client, err := Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Notify(&wire.Message{Type: wire.TerminationNotify}))

	// The server closes its side of the connection once it processes the
	// termination notify; a subsequent read should observe that.
	time.Sleep(50 * time.Millisecond)
	_, err = wire.ReadMessage(client.conn.conn)
	assert.Error(t, err)
}

func TestRequestRejectsNonRequestType(t *testing.T) {
	s := NewServer()
	addr, stop := startServer(t, s)
	defer stop()

	client, err := Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Request(&wire.Message{Type: wire.HeartBeatNotify})
	assert.Error(t, err)
}
