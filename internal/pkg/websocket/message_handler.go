package websocket

import (
	"bytes"
	"encoding/json"

	"github.com/yigit/campuswell/internal/community"
)

// Client commands
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ClientMessage is a command sent by a connected client.
type ClientMessage struct {
	Action   string `json:"action"`
	Category string `json:"category,omitempty"`
}

// ServerMessage acknowledges a command.
type ServerMessage struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

// topicFor maps a requested category to a hub topic. "all" and empty follow everything.
func topicFor(category string) (string, bool) {
	if category == "" || category == community.CategoryAll {
		return allCategories, true
	}
	return category, community.IsCategory(category)
}

// handleMessage applies one client command. It returns false once the hub stopped.
func (c *Client) handleMessage(raw []byte) bool {
	var msg ClientMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &msg); err != nil {
		c.logger.Debug().Err(err).Str("userID", c.userID).Msg("Ignoring malformed client message")
		return true
	}

	switch msg.Action {
	case ActionSubscribe:
		topic, ok := topicFor(msg.Category)
		if !ok {
			c.logger.Debug().Str("category", msg.Category).Msg("Ignoring subscription to unknown category")
			return true
		}
		return send(c.hub, c.hub.resubscribe, subscription{client: c, category: topic})
	case ActionUnsubscribe:
		return send(c.hub, c.hub.resubscribe, subscription{client: c, category: allCategories})
	default:
		c.logger.Debug().Str("action", msg.Action).Msg("Ignoring unknown client action")
		return true
	}
}

// ack tells a client its subscription changed. Called from the Run loop only.
func (h *Hub) ack(client *Client) {
	data, err := json.Marshal(ServerMessage{Type: "subscribed", Category: client.category})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}
