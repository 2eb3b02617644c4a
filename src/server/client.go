package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paper-trader/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub    *APIServer
	conn   *websocket.Conn
	send   chan interface{}
	token  string
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	closed       bool
	tickerMarket models.Market
	candleCancel func()
}

// -----------------------------------------------------------------------------

// wants reports whether out is addressed to this client.
func (c *Client) wants(out outbound) bool {
	if out.token != "" {
		return out.token == c.token
	}
	if out.msg.Type == models.MsgTickers {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.tickerMarket != "" && c.tickerMarket == out.msg.Market
	}
	return true
}

// enqueue never blocks; it reports false when the buffer is full.
func (c *Client) enqueue(msg *models.MPushMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(format string, args ...interface{}) {
	c.enqueue(&models.MPushMessage{
		Type:      models.MsgError,
		Data:      fmt.Sprintf(format, args...),
		Timestamp: time.Now().UnixMilli(),
	})
}

// close releases the subscriptions and the send channel. Only the hub calls it.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	cancel := c.candleCancel
	c.candleCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.cancel()
}

func (c *Client) setTickerMarket(m models.Market) {
	c.mu.Lock()
	c.tickerMarket = m
	c.mu.Unlock()
}

// setCandleSubscription replaces the current candle subscription.
func (c *Client) setCandleSubscription(cancel func()) {
	c.mu.Lock()
	prev := c.candleCancel
	c.candleCancel = cancel
	closed := c.closed
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
	if closed && cancel != nil {
		cancel()
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
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
