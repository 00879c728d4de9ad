package websocket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/herocast/herocast/domain"
	"github.com/herocast/herocast/logging"
)

// Session protocol frames. The first accepted frame from a new session must
// carry the nickname prefix; everything after acceptance is chat.
const (
	NicknamePrefix   = "NICKNAME:"
	NicknameAccepted = "NICKNAME_ACCEPTED:"
	NicknameError    = "NICKNAME_ERROR:"

	errSetNicknameFirst = "Please set nickname first"
)

type ConnectionOptions struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
}

func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512 * 1024, // 512KB
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Connection is one client session. It implements domain.Client: the hub
// hands frames to the buffered send channel and never blocks on the socket
// itself, so one stalled client cannot stall a broadcast.
type Connection struct {
	id       string
	ctx      context.Context
	conn     *ws.Conn
	cancel   context.CancelFunc
	hub      domain.Hub
	logger   *logging.Logger
	options  ConnectionOptions
	sendChan chan []byte
	mutex    sync.RWMutex
	closed   bool

	// nickname state is touched only by the read pump goroutine.
	named    bool
	nickname string
}

func NewConnection(conn *ws.Conn, hub domain.Hub, logger *logging.Logger, options ConnectionOptions) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := xid.New().String()

	return &Connection{
		id:       id,
		ctx:      ctx,
		conn:     conn,
		cancel:   cancel,
		hub:      hub,
		logger:   logger.WithFields(map[string]any{"client_id": id}),
		options:  options,
		sendChan: make(chan []byte, 256),
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Send(ctx context.Context, message []byte) error {
	// The read lock is held across the channel send so Close cannot close
	// sendChan underneath it; every case below is non-blocking.
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.closed {
		return errors.New("connection is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return errors.New("connection context done")
	case c.sendChan <- message:
		return nil
	default:
		return errors.New("send channel full or blocked")
	}
}

func (c *Connection) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	c.mutex.Unlock()

	c.logger.Info("closing websocket connection")

	c.cancel()
	close(c.sendChan)

	if err := c.conn.Close(); err != nil {
		c.logger.Error("error closing websocket connection", "error", err)
		return err
	}

	return nil
}

// Start registers the connection with the hub and runs the pumps until the
// session ends. Disconnect cleanup runs exactly once regardless of whether
// the read-error path or an explicit close got there first.
func (c *Connection) Start(ctx context.Context) {
	if err := c.hub.Connect(c); err != nil {
		c.logger.Error("failed to register connection", "error", err)
		c.Close()
		return
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		c.readPump(ctx)
	}()

	go c.writePump(ctx)

	<-done
	c.hub.Disconnect(c.id)
	c.logger.Info("connection closed")
}

func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.logger.Debug("read pump stopped")
	}()

	c.conn.SetReadLimit(c.options.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ctx.Done():
			return
		default:
			messageType, message, err := c.conn.ReadMessage()
			if err != nil {
				if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
					c.logger.Warn("websocket unexpected close error", "error", err)
				} else {
					c.logger.Info("websocket connection closed", "error", err)
				}
				return
			}

			if messageType != ws.TextMessage {
				continue
			}

			c.handleFrame(ctx, string(message))
		}
	}
}

func (c *Connection) handleFrame(ctx context.Context, text string) {
	if !c.named {
		if !strings.HasPrefix(text, NicknamePrefix) {
			if err := c.Send(ctx, []byte(NicknameError+errSetNicknameFirst)); err != nil {
				c.logger.Warn("failed to send nickname error", "error", err)
			}
			return
		}

		candidate := strings.TrimSpace(strings.TrimPrefix(text, NicknamePrefix))
		if err := c.hub.SetNickname(c, candidate); err != nil {
			// Acknowledgment already went to this session; it stays
			// unnamed and may retry.
			return
		}

		c.named = true
		c.nickname = candidate
		return
	}

	c.hub.Broadcast(c.nickname + ": " + text)
}

func (c *Connection) writePump(ctx context.Context) {
	defer func() {
		c.logger.Debug("write pump stopped")
	}()

	ticker := time.NewTicker(c.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ctx.Done():
			return
		case message, ok := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))

			if !ok {
				c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(ws.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error", "error", err)
				return
			}

			n := len(c.sendChan)
			for range n {
				select {
				case msg := <-c.sendChan:
					if err := c.conn.WriteMessage(ws.TextMessage, msg); err != nil {
						c.logger.Warn("websocket write error", "error", err)
						return
					}
				default:
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				c.logger.Warn("websocket ping error", "error", err)
				return
			}
		}
	}
}
