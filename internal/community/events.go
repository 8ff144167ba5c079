package community

import "time"

// EventType names a change pushed to live subscribers.
type EventType string

const (
	EventPostCreated  EventType = "post_created"
	EventReplyCreated EventType = "reply_created"
	EventPostLiked    EventType = "post_liked"
	EventPostDeleted  EventType = "post_deleted"
	EventPostPinned   EventType = "post_pinned"
)

// Event describes a committed change.
type Event struct {
	Type      EventType   `json:"type"`
	Category  string      `json:"category"`
	PostID    string      `json:"postId"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher fans events out. Publish must not block.
type Publisher interface {
	Publish(evt Event)
}
