package peer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// P2PPath is the route peers connect to.
const P2PPath = "/v1/node/p2p"

// writeWait bounds a single send so a hung peer can't stall a broadcast.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSConn is a peer connection carried over a websocket.
type WSConn struct {
	ws   *websocket.Conn
	host string
	mu   sync.Mutex
}

// Dial opens a connection to the peer. An address without a scheme is
// treated as host:port of the peer's private API.
func Dial(ctx context.Context, address string) (*WSConn, error) {
	url := address
	if !strings.Contains(address, "://") {
		url = "ws://" + address + P2PPath
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &WSConn{ws: ws, host: address}, nil
}

// Upgrade accepts an inbound peer connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WSConn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	return &WSConn{ws: ws, host: r.RemoteAddr}, nil
}

// Host implements the Conn interface.
func (c *WSConn) Host() string {
	return c.host
}

// Send implements the Conn interface. Writes are serialized since the
// websocket allows one concurrent writer.
func (c *WSConn) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close implements the Conn interface.
func (c *WSConn) Close() error {
	return c.ws.Close()
}

// Serve reads messages until the connection fails and hands each raw
// message to the function. The read error is returned.
func (c *WSConn) Serve(fn func(data []byte)) error {

	// Clear any deadline inherited from the http server.
	c.ws.SetReadDeadline(time.Time{})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		fn(data)
	}
}
