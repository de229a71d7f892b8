// Package queue implements the message-queue entry point: a Redis list
// carrying {action, body} envelopes that are dispatched to registered
// handlers. Unknown actions and malformed envelopes are logged and dropped;
// the producer gets a reply only when the message names a reply key.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/observability"
)

const (
	popTimeout = 2 * time.Second
	replyTTL   = time.Minute
)

// ActionHandler processes the body of one envelope and returns the reply
// payload.
type ActionHandler func(ctx context.Context, body json.RawMessage) (any, error)

// Envelope is the wire shape of a queue message.
type Envelope struct {
	ID      string `json:"id,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`
	Data    struct {
		Action string          `json:"action"`
		Body   json.RawMessage `json:"body"`
	} `json:"data"`
}

// Reply is pushed to the envelope's reply key.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// replyFunc delivers a reply to the producer's reply key.
type replyFunc func(ctx context.Context, replyTo string, reply Reply)

// Consumer pops envelopes off a Redis list and dispatches them.
type Consumer struct {
	client   *redis.Client
	queue    string
	logger   *zap.Logger
	handlers map[string]ActionHandler
	reply    replyFunc
}

// NewConsumer builds a consumer for the named queue.
func NewConsumer(client *redis.Client, queueName string, logger *zap.Logger) *Consumer {
	c := &Consumer{
		client:   client,
		queue:    queueName,
		logger:   logger,
		handlers: make(map[string]ActionHandler),
	}
	c.reply = c.pushReply
	return c
}

// Register binds an action name to a handler. Must be called before Run.
func (c *Consumer) Register(action string, handler ActionHandler) {
	c.handlers[action] = handler
}

// Run blocks popping messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("queue consumer started", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("queue consumer stopped", zap.String("queue", c.queue))
			return
		default:
		}

		res, err := c.client.BLPop(ctx, popTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Warn("queue pop failed", zap.Error(err))
			continue
		}
		// BLPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		c.process(ctx, []byte(res[1]))
	}
}

// process decodes and dispatches one raw message. Split from Run so the
// dispatch behavior is testable without a live Redis.
func (c *Consumer) process(ctx context.Context, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		observability.QueueMessagesTotal.WithLabelValues("malformed").Inc()
		c.logger.Warn("dropping malformed queue message", zap.Error(err))
		return
	}
	if envelope.Data.Action == "" || len(envelope.Data.Body) == 0 {
		observability.QueueMessagesTotal.WithLabelValues("malformed").Inc()
		c.logger.Warn("dropping queue message with missing action or body", zap.String("message_id", envelope.ID))
		return
	}

	handler, ok := c.handlers[envelope.Data.Action]
	if !ok {
		observability.QueueMessagesTotal.WithLabelValues("unknown_action").Inc()
		c.logger.Warn("unrecognized queue action",
			zap.String("action", envelope.Data.Action),
			zap.String("message_id", envelope.ID))
		return
	}

	result, err := handler(ctx, envelope.Data.Body)
	if err != nil {
		observability.QueueMessagesTotal.WithLabelValues("handler_error").Inc()
		c.logger.Error("queue handler failed",
			zap.String("action", envelope.Data.Action),
			zap.String("message_id", envelope.ID),
			zap.Error(err))
		c.reply(ctx, envelope.ReplyTo, Reply{Success: false, Message: err.Error()})
		return
	}

	observability.QueueMessagesTotal.WithLabelValues("ok").Inc()
	c.reply(ctx, envelope.ReplyTo, Reply{Success: true, Message: "ok", Data: result})
}

func (c *Consumer) pushReply(ctx context.Context, replyTo string, reply Reply) {
	if replyTo == "" {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		c.logger.Error("marshal queue reply", zap.Error(err))
		return
	}
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, replyTo, payload)
	pipe.Expire(ctx, replyTo, replyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("push queue reply failed", zap.String("reply_to", replyTo), zap.Error(err))
	}
}
