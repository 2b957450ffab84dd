package rpc

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/fluxgraph/internal/wire"
)

// Connection wraps a net.Conn with the serial-write guarantee spec.md §5
// requires: asynchronous operations on a single connection are chained, so
// no two goroutines ever write interleaved bytes onto the same socket. A
// Connection's read loop, by contrast, runs alone on its own goroutine and
// needs no lock.
type Connection struct {
	ID   uuid.UUID
	conn net.Conn

	writeMu sync.Mutex
}

// newConnection wraps conn, assigning it a fresh correlation id for logging.
func newConnection(conn net.Conn) *Connection {
	return &Connection{ID: uuid.New(), conn: conn}
}

// Send frames and writes msg, serialised against any concurrent Send on the
// same Connection.
func (c *Connection) Send(msg *wire.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteMessage(c.conn, msg)
}

// Recv blocks for the next framed message on this connection.
func (c *Connection) Recv() (*wire.Message, error) {
	return wire.ReadMessage(c.conn)
}

// Close closes the underlying socket.
func (c *Connection) Close() error { return c.conn.Close() }

// RemoteAddr returns the connection's remote network address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
