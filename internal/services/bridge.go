package services

import (
	"context"
	"fmt"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/config"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
)

// BroadcastTopic is the single broker subject every instance publishes to
// and subscribes on. Fan-out is not per-room: each instance receives every
// event and filters to its own locally subscribed room groups.
const BroadcastTopic = "chat.messages"

// ChatEvent is the cross-instance broadcast payload for an accepted message.
// The ledger row is the durable record; this event is best-effort.
type ChatEvent struct {
	RoomID         int64  `json:"roomId"`
	MessageID      int64  `json:"messageId"`
	SenderID       string `json:"senderId"`
	SenderNickname string `json:"senderNickname"`
	Body           string `json:"body"`
	SentAt         int64  `json:"sentAt"`
}

// EventForMessage builds the broadcast payload for a persisted message.
func EventForMessage(message *models.Message) ChatEvent {
	return ChatEvent{
		RoomID:         message.RoomID,
		MessageID:      message.ID,
		SenderID:       message.SenderID,
		SenderNickname: message.Sender.Nickname,
		Body:           message.Body,
		SentAt:         message.CreatedAt.UnixMilli(),
	}
}

// Bridge relays accepted messages between server instances. Publish must not
// block message acceptance beyond the broker round trip, and delivery is
// at-least-once, best-effort: lost broadcasts are not retried, a
// reconnecting client fetches backlog through History.
type Bridge interface {
	Publish(ctx context.Context, event ChatEvent) error
	Subscribe(ctx context.Context, handler func(ChatEvent)) error
	// Ping reports whether the broker connection is currently usable.
	Ping(ctx context.Context) error
	Close() error
}

// NewBridge builds the broker selected by config (BROKER=redis|nats).
func NewBridge() (Bridge, error) {
	switch config.AppConfig.Broker {
	case "", "redis":
		return NewRedisBridge(), nil
	case "nats":
		return NewNATSBridge(config.AppConfig.NatsURL)
	default:
		return nil, fmt.Errorf("unknown broker %q", config.AppConfig.Broker)
	}
}
