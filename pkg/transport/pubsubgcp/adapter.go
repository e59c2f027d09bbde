// Package pubsubgcp backs the "zenoh"-kind pub/sub transport binding with
// cloud.google.com/go/pubsub/v2, one of the messaging client libraries
// present in the retrieved corpus (gravwell-gravwell). Zenoh's key
// expressions have no direct analogue here, so key_pub/key_sub strings are
// used verbatim as Pub/Sub topic and subscription ids.
package pubsubgcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/config"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
)

// Adapter is the zenoh-kind transport.ReaderAdapter/WriterAdapter
// implementation.
type Adapter struct {
	client *pubsub.Client
}

// New wraps an existing *pubsub.Client. The caller owns its lifecycle.
func New(client *pubsub.Client) *Adapter {
	return &Adapter{client: client}
}

func keyOf(pub, sub string) (string, error) {
	switch {
	case sub != "":
		return sub, nil
	case pub != "":
		return pub, nil
	default:
		return "", fmt.Errorf("%w: zenoh binding has neither key_pub nor key_sub", transport.ErrInvalidConfig)
	}
}

// AddReader subscribes to the binding's key expression and delivers each
// message's payload bytes to send.
func (a *Adapter) AddReader(b config.Transport, send *bytechan.Chan) (transport.Driver, error) {
	key, err := keyOf(b.KeyPub, b.KeySub)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		subscriber := a.client.Subscriber(key)
		err := subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			payload := append([]byte(nil), msg.Data...)
			if err := send.Send(ctx, payload); err != nil {
				msg.Nack()
				return
			}
			msg.Ack()
		})
		if err != nil {
			return fmt.Errorf("pubsubgcp: receive on %s: %w", key, err)
		}
		return nil
	}, nil
}

// AddWriter declares a publisher on the binding's key expression and
// publishes every buffer received on recv.
func (a *Adapter) AddWriter(b config.Transport, recv *bytechan.Chan) (transport.Driver, error) {
	key, err := keyOf(b.KeyPub, b.KeySub)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		publisher := a.client.Publisher(key)
		defer publisher.Stop()

		for {
			buf, ok := recv.Recv(ctx)
			if !ok {
				return nil
			}
			result := publisher.Publish(ctx, &pubsub.Message{Data: buf})
			if _, err := result.Get(ctx); err != nil {
				return fmt.Errorf("pubsubgcp: publish on %s: %w", key, err)
			}
		}
	}, nil
}
