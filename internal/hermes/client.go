package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectRolloutGenerated carries rollouts awaiting a reward.
	SubjectRolloutGenerated = "alfworld.rollout.generated"
	// SubjectRewardScored carries the reward computed for a rollout.
	SubjectRewardScored = "alfworld.reward.scored"
	// SubjectRegistered announces the service on startup.
	SubjectRegistered = "alfworld.agent.alfreward.registered"
)

// RewardEvent is published for every scored rollout.
type RewardEvent struct {
	RewardID    string  `json:"reward_id,omitempty"`
	SampleID    string  `json:"sample_id"`
	Split       string  `json:"split,omitempty"`
	Step        int     `json:"step,omitempty"`
	ModelID     string  `json:"model_id,omitempty"`
	Score       float64 `json:"score"`
	FormatOK    bool    `json:"format_ok"`
	ValidAction bool    `json:"valid_action"`
	Correct     bool    `json:"correct"`
	Action      string  `json:"action,omitempty"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("alfreward"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// QueueSubscribe spreads messages on subject across all members of queue,
// so several scorer replicas can share one rollout stream.
func (c *Client) QueueSubscribe(subject, queue string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject, "queue", queue)
	return nil
}

// Drain flushes pending messages before closing the connection.
func (c *Client) Drain() error {
	return c.conn.Drain()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
