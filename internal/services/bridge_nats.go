package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/nats-io/nats.go"
)

// NATSBridge relays chat events over a core NATS subject. Core pub/sub gives
// exactly the contract the bridge needs: every live instance receives every
// event, nothing is persisted for absent ones.
type NATSBridge struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

func NewNATSBridge(url string) (*NATSBridge, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSBridge{conn: conn}, nil
}

func (b *NATSBridge) Publish(_ context.Context, event ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.conn.Publish(BroadcastTopic, payload)
}

func (b *NATSBridge) Subscribe(_ context.Context, handler func(ChatEvent)) error {
	sub, err := b.conn.Subscribe(BroadcastTopic, func(msg *nats.Msg) {
		var event ChatEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn().Err(err).Msg("Dropping malformed chat broadcast")
			return
		}
		handler(event)
	})
	if err != nil {
		return err
	}
	b.sub = sub
	return nil
}

func (b *NATSBridge) Ping(_ context.Context) error {
	if status := b.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats connection is %s", status)
	}
	return nil
}

func (b *NATSBridge) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	return b.conn.Drain()
}
