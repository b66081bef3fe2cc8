package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

// PubSubMailer publishes transactional email jobs to a Pub/Sub topic consumed
// by the email worker.
type PubSubMailer struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubMailer constructs a Pub/Sub backed email job publisher.
func NewPubSubMailer(topic *pubsub.Topic) (*PubSubMailer, error) {
	if topic == nil {
		return nil, errors.New("pubsub mailer: topic is required")
	}
	return &PubSubMailer{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Send enqueues an email job message on the configured topic.
func (p *PubSubMailer) Send(ctx context.Context, message services.EmailMessage) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub mailer: not initialised")
	}
	if strings.TrimSpace(message.To) == "" {
		return errors.New("pubsub mailer: recipient is required")
	}

	data, err := p.marshal(message)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "to", message.To)
	setAttr(attrs, "kind", message.Kind)
	setAttr(attrs, "orderId", message.OrderID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}
	return nil
}

// PubSubMessenger publishes customer messaging jobs (WhatsApp template sends)
// to a Pub/Sub topic consumed by the messaging worker.
type PubSubMessenger struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubMessenger constructs a Pub/Sub backed messaging job publisher.
func NewPubSubMessenger(topic *pubsub.Topic) (*PubSubMessenger, error) {
	if topic == nil {
		return nil, errors.New("pubsub messenger: topic is required")
	}
	return &PubSubMessenger{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Send enqueues a messaging job on the configured topic.
func (p *PubSubMessenger) Send(ctx context.Context, message services.TextMessage) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub messenger: not initialised")
	}
	if strings.TrimSpace(message.Phone) == "" {
		return errors.New("pubsub messenger: phone is required")
	}

	data, err := p.marshal(message)
	if err != nil {
		return fmt.Errorf("marshal messaging job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "phone", message.Phone)
	setAttr(attrs, "template", message.Template)
	setAttr(attrs, "orderId", message.OrderID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish messaging job: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
