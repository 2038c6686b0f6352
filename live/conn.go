// Package live is the client side of the bidirectional live channel.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 1 << 20
)

var (
	ErrClosed  = errors.New("live: connection closed")
	ErrBacklog = errors.New("live: send backlog full")
	// ErrServerClosed reports that the server ended the channel; presence and
	// timer sync stop until the client reconnects.
	ErrServerClosed = errors.New("live: closed by server")
)

// Handler receives the raw data of one inbound event.
type Handler func(data json.RawMessage)

// Emitter sends events to the server.
type Emitter interface {
	Emit(event string, data any) error
}

// Subscriber registers handlers for inbound events.
type Subscriber interface {
	On(event string, h Handler)
}

// Conn is one live-channel connection. Emits are written in call order; inbound
// events are dispatched one at a time, in arrival order, on the read goroutine.
type Conn struct {
	ws   *websocket.Conn
	send chan Envelope
	done chan struct{}

	mu       sync.RWMutex
	handlers map[string][]Handler

	closed    atomic.Bool
	closeOnce sync.Once
}

// URLFor derives the live endpoint from the backend base URL.
func URLFor(base *url.URL) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/live"
	u.RawQuery = ""
	return u.String()
}

// Dial connects to rawURL, presenting the session cookies found in jar.
func Dial(ctx context.Context, rawURL string, jar http.CookieJar) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
		Jar:              jar,
	}
	ws, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", rawURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return newConn(ws), nil
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:       ws,
		send:     make(chan Envelope, sendBufferSize),
		done:     make(chan struct{}),
		handlers: map[string][]Handler{},
	}
	go c.writeLoop()
	return c
}

func (c *Conn) On(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.mu.Unlock()
}

// Emit queues an event. It never blocks; a full queue reports ErrBacklog rather
// than dropping frames, so emit order is preserved.
func (c *Conn) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case <-c.done:
		return ErrClosed
	case c.send <- Envelope{Event: event, Data: raw}:
		return nil
	default:
		return ErrBacklog
	}
}

// Run reads and dispatches inbound events until the connection fails or ctx ends.
func (c *Conn) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	defer c.Close()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrServerClosed
			}
			return fmt.Errorf("read live frame: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Debug().Err(err).Msg("[live] malformed frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Conn) dispatch(env Envelope) {
	c.mu.RLock()
	hs := c.handlers[env.Event]
	c.mu.RUnlock()
	if len(hs) == 0 {
		log.Debug().Str("event", env.Event).Msg("[live] unhandled event")
		return
	}
	for _, h := range hs {
		h(env.Data)
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				log.Debug().Err(err).Str("event", env.Event).Msg("[live] write")
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.ws.Close()
	})
	return err
}
