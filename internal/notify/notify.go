// Package notify delivers stage-change notifications to organization users.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "launchpad.stage-changed"

type Recipient struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// StageChanged is published every time an organization advances.
type StageChanged struct {
	OrganizationID   int64       `json:"organization_id"`
	OrganizationName string      `json:"organization_name"`
	FromStep         int         `json:"from_step"`
	FromStepName     string      `json:"from_step_name"`
	ToStep           int         `json:"to_step"`
	ToStepName       string      `json:"to_step_name"`
	Recipients       []Recipient `json:"recipients"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

type Notifier interface {
	StageChanged(ctx context.Context, ev StageChanged) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes events keyed by organization id so one
// organization's events stay ordered on a partition.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	log    *slog.Logger
}

func NewKafka(brokers []string, topic string, log *slog.Logger) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	log.Info("kafka producer created", "brokers", brokers, "topic", topic)
	return &KafkaNotifier{writer: newWriter(brokers, topic), topic: topic, log: log}
}

// newWriter builds a synchronous writer that flushes each event right away
// instead of waiting out kafka-go's default one second batch window.
func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchSize:              1,
		BatchTimeout:           5 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
	}
}

func (k *KafkaNotifier) StageChanged(ctx context.Context, ev StageChanged) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrganizationID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("stage_changed")},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish stage change for organization %d: %w", ev.OrganizationID, err)
	}
	k.log.Debug("kafka message sent", "topic", k.topic, "organization_id", ev.OrganizationID)
	return nil
}

func (k *KafkaNotifier) Close() error { return k.writer.Close() }

// LogNotifier only logs. It is used when no broker is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) StageChanged(_ context.Context, ev StageChanged) error {
	emails := make([]string, 0, len(ev.Recipients))
	for _, r := range ev.Recipients {
		emails = append(emails, r.Email)
	}
	n.Log.Info("stage changed",
		"organization_id", ev.OrganizationID,
		"from", ev.FromStepName,
		"to", ev.ToStepName,
		"recipients", emails,
	)
	return nil
}
