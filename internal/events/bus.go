package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"precedent/internal/logger"
)

// TopicIngestSucceeded carries one message per accepted upload.
const TopicIngestSucceeded = "ingest.succeeded"

// IngestSucceeded is the payload published on TopicIngestSucceeded.
type IngestSucceeded struct {
	Filename   string    `json:"filename"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Bus is the in-process event bus between the upload and history components.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

// NewBus creates a bus backed by a watermill Go channel pub/sub.
func NewBus(log logger.ILogger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		newWatermillLogger(log),
	)
	return &Bus{pubSub: pubSub, logger: log}
}

// IngestSucceeded publishes the refresh signal for filename.
func (b *Bus) IngestSucceeded(ctx context.Context, filename string) error {
	payload, err := json.Marshal(IngestSucceeded{Filename: filename, OccurredAt: time.Now()})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(TopicIngestSucceeded, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicIngestSucceeded, err)
	}
	b.logger.Debug("EVENTS", "ingest succeeded published", map[string]interface{}{"filename": filename, "message_id": msg.UUID})
	return nil
}

// SubscribeIngestSucceeded returns a channel of refresh signals, closed when ctx ends or the bus closes.
func (b *Bus) SubscribeIngestSucceeded(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, TopicIngestSucceeded)
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// DecodeIngestSucceeded reads the payload of a refresh signal.
func DecodeIngestSucceeded(msg *message.Message) (IngestSucceeded, error) {
	var evt IngestSucceeded
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return IngestSucceeded{}, err
	}
	return evt, nil
}

// watermillLogger forwards watermill's internal logging to the app logger.
type watermillLogger struct {
	log    logger.ILogger
	fields watermill.LogFields
}

func newWatermillLogger(log logger.ILogger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (w *watermillLogger) details(fields watermill.LogFields) map[string]interface{} {
	out := make(map[string]interface{}, len(w.fields)+len(fields))
	for k, v := range w.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	d := w.details(fields)
	d["error"] = err
	w.log.Error("WATERMILL", msg, d)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Info("WATERMILL", msg, w.details(fields))
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debug("WATERMILL", msg, w.details(fields))
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log.Debug("WATERMILL", msg, w.details(fields))
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: w.log, fields: w.fields.Add(fields)}
}
