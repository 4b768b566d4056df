package services

import (
	"context"
	"encoding/json"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisBridge relays chat events over redis pub/sub. Every instance
// subscribes to the same channel; redis delivers a published event to all of
// them, including the publisher.
type RedisBridge struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func NewRedisBridge() *RedisBridge {
	return &RedisBridge{client: database.Redis}
}

func (b *RedisBridge) Publish(ctx context.Context, event ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, BroadcastTopic, payload).Err()
}

func (b *RedisBridge) Subscribe(ctx context.Context, handler func(ChatEvent)) error {
	b.pubsub = b.client.Subscribe(ctx, BroadcastTopic)

	// Force the subscription before returning so a publish immediately after
	// startup is not lost on this instance.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return err
	}

	go func() {
		for msg := range b.pubsub.Channel() {
			var event ChatEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Msg("Dropping malformed chat broadcast")
				continue
			}
			handler(event)
		}
	}()
	return nil
}

func (b *RedisBridge) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBridge) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
