package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/whisper-chat/relay/internal/domain"
	"github.com/whisper-chat/relay/internal/protocol"
	"github.com/whisper-chat/relay/internal/service"
)

const (
	writeWait    = 10 * time.Second
	authWait     = 30 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
	// File messages carry their ciphertext inline.
	maxMessageSize = 256 * 1024
)

// Client is a single WebSocket connection. It starts unauthenticated: the
// first inbound event must be authenticate, which registers the user in the
// presence registry. Everything before that is dropped.
type Client struct {
	conn  *websocket.Conn
	relay *service.RelayService

	userID uuid.UUID
	authed bool

	authTimer *time.Timer
	send      chan *protocol.Event
	done      chan struct{}
}

func NewClient(conn *websocket.Conn, relay *service.RelayService) *Client {
	return &Client{
		conn:  conn,
		relay: relay,
		send:  make(chan *protocol.Event, sendBufSize),
		done:  make(chan struct{}),
	}
}

// Push implements presence.Conn. Non-blocking: a closed connection or a full
// send buffer drops the event and reports the miss.
func (c *Client) Push(evt *protocol.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- evt:
		return true
	default:
		return false
	}
}

// ReadPump reads inbound events and dispatches them to the relay service.
func (c *Client) ReadPump() {
	c.authTimer = time.AfterFunc(authWait, func() {
		c.conn.Close(websocket.StatusPolicyViolation, "authentication timeout")
	})

	defer func() {
		c.authTimer.Stop()
		close(c.done)
		if c.authed {
			c.relay.Disconnect(context.Background(), c.userID, c)
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event protocol.Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				logrus.Debugf("ws: read error: %v", err)
			}
			return
		}
		if !c.handleEvent(&event) {
			return
		}
	}
}

// WritePump writes queued events to the WebSocket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case evt := <-c.send:
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err = c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes one inbound event. A false return terminates the
// connection; per-event failures otherwise stay isolated.
func (c *Client) handleEvent(event *protocol.Event) bool {
	ctx := context.Background()

	if event.Type == protocol.EventAuthenticate {
		if c.authed {
			return true
		}
		var p protocol.AuthenticatePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return false
		}
		userID, err := c.relay.Authenticate(ctx, c, p.Token)
		if err != nil {
			logrus.Debugf("ws: authentication rejected: %v", err)
			return false
		}
		c.userID = userID
		c.authed = true
		c.authTimer.Stop()
		return true
	}

	// Everything below requires an authenticated connection.
	if !c.authed {
		return true
	}

	switch event.Type {
	case protocol.EventMessage:
		var p protocol.SendPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid message payload")
			return true
		}
		if _, err := c.relay.Send(ctx, c.userID, p.ReceiverID, p.Type, p.Content, p.SessionKey); err != nil {
			if errors.Is(err, domain.ErrInvalidContent) || errors.Is(err, domain.ErrInvalidType) || errors.Is(err, domain.ErrMissingParty) {
				c.sendError("INVALID_MESSAGE", err.Error())
			} else {
				logrus.WithField("user_id", c.userID).Errorf("ws: send failed: %v", err)
				c.sendError("SEND_FAILED", "message was not stored")
			}
		}

	case protocol.EventMessageRetract:
		var p protocol.RetractPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid message_retract payload")
			return true
		}
		if err := c.relay.Retract(ctx, c.userID, p.MessageID); err != nil {
			logrus.WithField("user_id", c.userID).Errorf("ws: retract failed: %v", err)
		}

	case protocol.EventReadReceipt:
		var p protocol.ReadReceiptPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid read_receipt payload")
			return true
		}
		if err := c.relay.ReadReceipt(ctx, c.userID, p.MessageID); err != nil {
			logrus.WithField("user_id", c.userID).Errorf("ws: read receipt failed: %v", err)
		}

	case protocol.EventTyping:
		var p protocol.TypingPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return true
		}
		c.relay.Typing(c.userID, p.ReceiverID, p.IsTyping)

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
	return true
}

func (c *Client) sendError(code, message string) {
	evt, err := protocol.NewEvent(protocol.EventError, protocol.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.Push(evt)
}
