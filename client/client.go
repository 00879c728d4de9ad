// Package client implements a dialing chat client used by cmd/client.
package client

import (
	"errors"
	"net/url"
	"strings"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/herocast/herocast/websocket"
)

func NewClient(u url.URL) (*Client, error) {
	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

type Client struct {
	conn *ws.Conn
	done chan struct{}
}

// SetNickname performs the nickname handshake. The session already
// receives broadcasts while unnamed, so frames without an acknowledgment
// prefix are chatter that raced the handshake and are skipped.
func (c *Client) SetNickname(nickname string) error {
	if err := c.conn.WriteMessage(ws.TextMessage, []byte(websocket.NicknamePrefix+nickname)); err != nil {
		return err
	}

	for {
		_, reply, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		text := string(reply)
		switch {
		case strings.HasPrefix(text, websocket.NicknameAccepted):
			return nil
		case strings.HasPrefix(text, websocket.NicknameError):
			return errors.New(strings.TrimPrefix(text, websocket.NicknameError))
		}
	}
}

// Read delivers every broadcast to onMessage until the connection ends.
func (c *Client) Read(onMessage func(string)) {
	defer close(c.done)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		onMessage(string(message))
	}
}

// Send forwards one chat line.
func (c *Client) Send(text string) error {
	return c.conn.WriteMessage(ws.TextMessage, []byte(text))
}

// Shutdown sends a close frame and then waits (with timeout) for the server
// to close the connection.
func (c *Client) Shutdown() error {
	err := c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	if err != nil {
		return err
	}

	select {
	case <-c.done:
	case <-time.After(time.Second):
	}

	return nil
}

func (c *Client) Teardown() error {
	return c.conn.Close()
}
