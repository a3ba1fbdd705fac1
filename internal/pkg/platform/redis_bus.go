package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const DefaultEventChannel = "auth:events"

// RedisBus publishes auth events over Redis pub/sub so every app instance
// sees sign-outs and refreshes of sessions it serves.
type RedisBus struct {
	client   *redis.Client
	channel  string
	pubsub   *redis.PubSub
	handlers handlerSet
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewRedisBus(ctx context.Context, client *redis.Client, channel string) (*RedisBus, error) {
	pubsub := client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	b := &RedisBus{
		client:  client,
		channel: channel,
		pubsub:  pubsub,
		done:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.listen()

	log.Infof("[AuthEvents] Listening on redis channel %s", channel)
	return b, nil
}

func (b *RedisBus) listen() {
	defer b.wg.Done()
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Warnf("[AuthEvents] Dropping malformed event: %v", err)
				continue
			}
			b.handlers.dispatch(evt)
		}
	}
}

func (b *RedisBus) Publish(ctx context.Context, evt AuthEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(handler func(AuthEvent)) func() {
	return b.handlers.add(handler)
}

func (b *RedisBus) Close() error {
	close(b.done)
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
