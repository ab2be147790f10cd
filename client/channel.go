package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thisorthat/api/internal/core/domain"
)

type ConnState string

const (
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
	ConnReconnecting ConnState = "reconnecting"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// ChannelHandlers are the observer callbacks for a poll subscription.
// OnResync fires after every reconnect: a gap in the stream is
// recovered by re-querying counts, not by replaying missed events.
type ChannelHandlers struct {
	OnEvent  func(domain.Event)
	OnState  func(ConnState)
	OnResync func()
}

// Channel is a live subscription to one poll's event stream with
// automatic reconnection. Close tears the subscription down promptly;
// it is safe to call more than once.
type Channel struct {
	url      string
	dialer   *websocket.Dialer
	handlers ChannelHandlers

	mu       sync.Mutex
	conn     *websocket.Conn
	done     chan struct{}
	once     sync.Once
	finished sync.WaitGroup
}

// SubscribeChannel connects to the given stream URL and starts the
// receive loop in the background.
func SubscribeChannel(url string, handlers ChannelHandlers) *Channel {
	c := &Channel{
		url:      url,
		dialer:   websocket.DefaultDialer,
		handlers: handlers,
		done:     make(chan struct{}),
	}
	c.finished.Add(1)
	go c.run()
	return c
}

func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	c.finished.Wait()
}

func (c *Channel) run() {
	defer c.finished.Done()

	delay := reconnectBaseDelay
	connectedBefore := false

	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, _, err := c.dialer.Dial(c.url, nil)
		if err != nil {
			c.notifyState(ConnReconnecting)
			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		// Close may have fired while the dial was in flight, in which
		// case it saw a nil conn; re-check here or this connection
		// outlives Close and the read loop never ends.
		select {
		case <-c.done:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.mu.Unlock()

		delay = reconnectBaseDelay
		c.notifyState(ConnConnected)
		if connectedBefore && c.handlers.OnResync != nil {
			c.handlers.OnResync()
		}
		connectedBefore = true

		c.readLoop(conn)

		select {
		case <-c.done:
			return
		default:
			c.notifyState(ConnDisconnected)
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		if c.handlers.OnEvent != nil {
			c.handlers.OnEvent(ev)
		}
	}
}

func (c *Channel) notifyState(state ConnState) {
	if c.handlers.OnState != nil {
		c.handlers.OnState(state)
	}
}
