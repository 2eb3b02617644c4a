package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"paper-trader/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// outbound is a push message with its routing: an account token for
// portfolio updates, nothing for market data.
type outbound struct {
	msg   *models.MPushMessage
	token string
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				client.close()
			}
			s.clients = make(map[*Client]struct{})
			s.setClientCount(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setClientCount(len(s.clients))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.close()
				s.setClientCount(len(s.clients))
			}

		case out := <-s.broadcast:
			for client := range s.clients {
				if !client.wants(out) {
					continue
				}
				if !client.enqueue(out.msg) {
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					client.close()
				}
			}
			s.setClientCount(len(s.clients))
		}
	}
}

func (s *APIServer) setClientCount(n int) {
	s.countMu.Lock()
	s.clientsN = n
	s.countMu.Unlock()
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a market data message. A full queue drops the message:
// the next tick carries fresher prices anyway.
func (s *APIServer) Broadcast(message *models.MPushMessage) {
	s.enqueue(outbound{msg: message})
}

// pushPortfolio is the account observer. It runs under the account lock and
// only queues.
func (s *APIServer) pushPortfolio(token string, view models.MPortfolioView) {
	s.enqueue(outbound{
		msg:   &models.MPushMessage{Type: models.MsgPortfolio, Data: view},
		token: token,
	})
}

func (s *APIServer) enqueue(out outbound) {
	if out.msg.Timestamp == 0 {
		out.msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case <-s.done:
	case s.broadcast <- out:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s message", out.msg.Type)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	token := requestToken(c)
	if token == "" {
		token = c.Query("token")
	}
	acc, known := s.Accounts.Get(c.Request.Context(), token)

	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    s,
		conn:   conn,
		send:   make(chan interface{}, 256),
		ctx:    ctx,
		cancel: cancel,
	}
	if known {
		client.token = acc.Token()
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		cancel()
		return
	}

	go client.writePump()
	go client.readPump()

	if known {
		client.enqueue(&models.MPushMessage{Type: models.MsgPortfolio, Data: acc.Snapshot(), Timestamp: time.Now().UnixMilli()})
	}
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "subscribe":
		s.subscribe(client, cmd)
	case "unsubscribe":
		switch cmd.Channel {
		case "tickers":
			client.setTickerMarket("")
		case "candles":
			client.setCandleSubscription(nil)
		}
	default:
		client.sendError("unknown command %q", cmd.Command)
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) subscribe(client *Client, cmd models.MSubscribeCommand) {
	switch cmd.Channel {
	case "tickers":
		market, err := models.ParseMarket(cmd.Market)
		if err != nil {
			client.sendError("%v", err)
			return
		}
		client.setTickerMarket(market)
		client.enqueue(&models.MPushMessage{
			Type:      models.MsgTickers,
			Market:    market,
			Data:      s.Registry.Assets(market),
			Timestamp: time.Now().UnixMilli(),
		})

	case "candles":
		symbol := strings.ToUpper(strings.TrimSpace(cmd.Symbol))
		timeframe := cmd.Timeframe
		// Drop the previous series first: a client follows one chart at a time.
		client.setCandleSubscription(nil)
		unsubscribe, err := s.Candles.Subscribe(client.ctx, symbol, timeframe, func(candles []models.MCandle) {
			client.enqueue(&models.MPushMessage{
				Type:      models.MsgCandles,
				Symbol:    symbol,
				Timeframe: timeframe,
				Data:      candles,
				Timestamp: time.Now().UnixMilli(),
			})
		})
		if err != nil {
			client.sendError("%v", err)
			return
		}
		client.setCandleSubscription(unsubscribe)

	default:
		client.sendError("unknown channel %q", cmd.Channel)
	}
}
