package rpc

import (
	"fmt"
	"net"

	"github.com/dreamware/fluxgraph/internal/wire"
)

// Client holds one outbound connection to a server and issues requests
// sequentially over it, matching spec.md §5's pull-then-push ordering: "a
// worker issues one pull, waits for its response, then pushes gradients".
type Client struct {
	conn *Connection
}

// Dial connects to addr and returns a Client ready to send requests/notifies.
func Dial(network, addr string) (*Client, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: newConnection(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Request sends msg and blocks for the single response message spec.md
// §4.9 guarantees for every request-tagged type.
func (c *Client) Request(msg *wire.Message) (*wire.Message, error) {
	if !msg.Type.RequiresResponse() {
		return nil, fmt.Errorf("rpc: %v is not a request type", msg.Type)
	}
	if err := c.conn.Send(msg); err != nil {
		return nil, err
	}
	return c.conn.Recv()
}

// Notify sends msg without waiting for a response.
func (c *Client) Notify(msg *wire.Message) error {
	return c.conn.Send(msg)
}
