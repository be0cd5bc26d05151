package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

type (
	Options struct {
		SendBufferSize int
		ReadLimit      int64
		WriteWait      time.Duration
		PongWait       time.Duration
		PingInterval   time.Duration
		MessageRate    float64
		MessageBurst   int
	}

	// Identity is the verified user a connection was opened for.
	Identity struct {
		UserID string
		Name   string
		Role   string
	}

	// envelope is the wire format of inbound messages. Outbound ones are lecture.Event.
	envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	// Client is a websocket connection. It implements lecture.Conn.
	Client struct {
		id      string
		ident   Identity
		conn    *websocket.Conn
		opts    Options
		logger  core.Logger
		limiter *rate.Limiter

		send      chan lecture.Event
		done      chan struct{}
		closeOnce sync.Once
	}
)

var _ lecture.Conn = (*Client)(nil)

func NewOptions(cfg core.LiveConfig) Options {
	return Options{
		SendBufferSize: cfg.SendBufferSize,
		ReadLimit:      cfg.ReadLimit,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingInterval:   cfg.PingInterval,
		MessageRate:    cfg.MessageRate,
		MessageBurst:   cfg.MessageBurst,
	}
}

func newClient(conn *websocket.Conn, ident Identity, opts Options, logger core.Logger) *Client {
	return &Client{
		id:      uuid.New().String(),
		ident:   ident,
		conn:    conn,
		opts:    opts,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(opts.MessageRate), opts.MessageBurst),
		send:    make(chan lecture.Event, opts.SendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() Identity { return c.ident }

// Send queues ev without blocking. Events sent to a closed client or while the
// send buffer is full are dropped.
func (c *Client) Send(ev lecture.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which flushes what is queued, says goodbye and
// closes the socket. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) sendError(payload lecture.ErrorPayload) {
	c.Send(lecture.Event{Name: lecture.EventError, Payload: payload})
}

// readPump hands every inbound message to handle until the peer goes away or
// misses the pong deadline.
func (c *Client) readPump(handle func(c *Client, msg envelope)) {
	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection " + c.id + " read error: " + err.Error())
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		if !c.limiter.Allow() {
			c.sendError(lecture.ErrorPayload{Message: "too many messages"})
			continue
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.sendError(lecture.ErrorPayload{Message: "malformed message"})
			continue
		}
		handle(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			if err := c.write(ev); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait))
			return
		}
	}
}

func (c *Client) write(ev lecture.Event) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	return c.conn.WriteJSON(ev)
}

// flush writes whatever is still queued, best effort.
func (c *Client) flush() {
	for {
		select {
		case ev := <-c.send:
			if err := c.write(ev); err != nil {
				return
			}
		default:
			return
		}
	}
}
