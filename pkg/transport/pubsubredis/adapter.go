// Package pubsubredis backs the "ros2"-kind pub/sub transport binding with
// github.com/redis/go-redis/v9, the topic-based publish/subscribe client
// already used by the teacher repo (pkg/redis/client.go) for state
// propagation. Topic strings stand in for ROS2 topic names.
package pubsubredis

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/config"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
)

// Adapter is the ros2-kind transport.ReaderAdapter/WriterAdapter
// implementation.
type Adapter struct {
	client *redis.Client
}

// New wraps an existing go-redis client. The caller owns the client's
// lifecycle.
func New(client *redis.Client) *Adapter {
	return &Adapter{client: client}
}

func topicOf(b config.Transport) (string, error) {
	switch {
	case b.TopicSub != "":
		return b.TopicSub, nil
	case b.ActionSrv != "":
		return b.ActionSrv, nil
	case b.TopicPub != "":
		return b.TopicPub, nil
	default:
		return "", fmt.Errorf("%w: ros2 binding has neither topic_sub, topic_pub nor action_srv", transport.ErrInvalidConfig)
	}
}

// AddReader subscribes to the binding's topic (or action server name) and
// delivers each message's payload bytes to send, exactly as the teacher's
// Client.Subscribe hands back a <-chan *redis.Message (spec §4.1).
func (a *Adapter) AddReader(b config.Transport, send *bytechan.Chan) (transport.Driver, error) {
	topic, err := topicOf(b)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		sub := a.client.Subscribe(ctx, topic)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				if err := send.Send(ctx, []byte(msg.Payload)); err != nil {
					return fmt.Errorf("pubsubredis: deliver message from %s: %w", topic, err)
				}
			}
		}
	}, nil
}

// AddWriter declares (lazily, on first publish) a publisher on the
// binding's topic and publishes every buffer received on recv.
func (a *Adapter) AddWriter(b config.Transport, recv *bytechan.Chan) (transport.Driver, error) {
	topic, err := topicOf(b)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		for {
			buf, ok := recv.Recv(ctx)
			if !ok {
				return nil
			}
			if err := a.client.Publish(ctx, topic, buf).Err(); err != nil {
				log.Printf("[transport/pubsubredis] publish to %s failed: %v", topic, err)
				continue
			}
		}
	}, nil
}
