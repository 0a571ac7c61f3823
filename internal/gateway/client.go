package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
)

// ErrConnClosed is returned when sending to a closed client
var ErrConnClosed = errors.New("connection closed")

// FeedClient is one agent's WebSocket connection to the feed. All writes
// go through the send channel; the write loop is the only goroutine
// touching the connection for output.
type FeedClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	UserId   int64
	TenantId int64
	ConnId   string

	server *FeedServer
}

// NewFeedClient creates a new FeedClient
func NewFeedClient(conn *websocket.Conn, userId, tenantId int64, connId string, server *FeedServer) *FeedClient {
	return &FeedClient{
		conn:     conn,
		send:     make(chan []byte, 256),
		closed:   make(chan struct{}),
		UserId:   userId,
		TenantId: tenantId,
		ConnId:   connId,
		server:   server,
	}
}

// Send queues a message for delivery. Returns ErrConnClosed after the
// connection is gone; a full buffer also drops the client since a reader
// that slow will never catch up with the feed.
func (c *FeedClient) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.close()
		return ErrConnClosed
	}
}

// run blocks until the connection is closed; the upgrader requires the
// handler to stay on the connection's goroutine
func (c *FeedClient) run() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop consumes inbound frames. The feed is one-way; reads exist only
// to process control frames and notice disconnects.
func (c *FeedClient) readLoop() {
	defer c.close()

	pongWait := c.server.cfg.Feed.PongWait
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			log.Debug("feed read closed: user_id=%d, conn_id=%s, error=%v", c.UserId, c.ConnId, err)
			return
		}
	}
}

func (c *FeedClient) writeLoop() {
	ticker := time.NewTicker(c.server.cfg.Feed.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	writeWait := c.server.cfg.Feed.WriteWait
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("feed write failed: user_id=%d, conn_id=%s, error=%v", c.UserId, c.ConnId, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *FeedClient) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
		c.server.unregister(c)
	})
}
