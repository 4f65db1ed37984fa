// Package kafka publishes reconciliation reports to a Kafka topic so that
// downstream jobs (summary refreshes, dashboards) can react to archive
// changes without polling object storage.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// Message types carried in the "event_type" header.
const (
	EventTask = "task_report"
	EventRun  = "run_report"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier produces task and run reports to the configured topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer messageWriter
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured report topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, logger: logger}
}

// NotifyTask publishes one task report keyed by "region/source", so every
// report for an archive lands on the same partition in order.
func (n *Notifier) NotifyTask(ctx context.Context, r domain.TaskReport) error {
	msg, err := taskMessage(r)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish task report %s/%s: %w", r.Region, r.Source, err)
	}
	return nil
}

// NotifyRun publishes the run summary keyed by run id.
func (n *Notifier) NotifyRun(ctx context.Context, r domain.RunReport) error {
	msg, err := runMessage(r)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run report %s: %w", r.RunID, err)
	}
	n.logger.Debug("run report published", "run_id", r.RunID)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

func taskMessage(r domain.TaskReport) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize task report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Region + "/" + r.Source),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTask)},
			{Key: "run_id", Value: []byte(r.RunID)},
			{Key: "status", Value: []byte(r.Status)},
			{Key: "finished_at", Value: []byte(r.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}

func runMessage(r domain.RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventRun)},
			{Key: "run_id", Value: []byte(r.RunID)},
			{Key: "finished_at", Value: []byte(r.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
