package service

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"mfgstream/internal/broker"
	"mfgstream/internal/metrics"
	"mfgstream/internal/model"
	"mfgstream/internal/rule"
)

// Publisher is the slice of kafka.Writer the pipeline republishes through.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ResultStore is the persistence capability the pipeline depends on.
type ResultStore interface {
	InsertResult(ctx context.Context, r model.StoredResult) (model.StoredResult, error)
}

// IngestService turns raw test-result messages into persisted, republished
// evaluated results. One instance serves one consumer loop.
type IngestService struct {
	store  ResultStore
	eval   *rule.Evaluator
	pub    Publisher
	logger *zap.SugaredLogger
	m      *metrics.PipelineMetrics
}

func NewIngestService(store ResultStore, eval *rule.Evaluator, pub Publisher, logger *zap.SugaredLogger, m *metrics.PipelineMetrics) *IngestService {
	return &IngestService{
		store:  store,
		eval:   eval,
		pub:    pub,
		logger: logger,
		m:      m,
	}
}

// ProcessMessage runs the per-message pipeline: parse, evaluate, persist,
// republish. The returned disposition is the message's terminal state:
//
//   - malformed payload  -> Reject  (permanent, never retried)
//   - storage failure    -> Requeue (transient, broker redelivers)
//   - otherwise          -> Ack     (republish is best effort and never
//     blocks the ack; the persisted row is the authoritative record)
//
// Redelivery of an already-persisted message inserts a duplicate row; there
// is no dedup key, which is the documented at-least-once trade-off.
func (s *IngestService) ProcessMessage(ctx context.Context, payload []byte) broker.Disposition {
	ev, err := model.ParseRawEvent(payload)
	if err != nil {
		s.logger.Errorw("rejecting malformed message", "error", err)
		s.countDisposition(broker.Reject)
		return broker.Reject
	}

	measured := float64(ev.MeasuredValue)
	status := s.eval.Evaluate(measured)

	stored, err := s.store.InsertResult(ctx, model.StoredResult{
		Barcode:       ev.Barcode,
		MachineID:     ev.MachineID,
		ProductID:     ev.ProductID,
		MeasuredValue: measured,
		Status:        status,
		Timestamp:     ev.EventTime,
	})
	if err != nil {
		s.logger.Errorw("storage failure, leaving message for redelivery", "error", err, "barcode", ev.Barcode)
		s.countDisposition(broker.Requeue)
		return broker.Requeue
	}
	if s.m != nil {
		s.m.ResultsPersisted.WithLabelValues(string(status)).Inc()
	}
	s.logger.Infow("result persisted", "barcode", stored.Barcode, "machine_id", stored.MachineID, "status", status)

	out, err := jsonStd.Marshal(model.NewEnvelope(stored))
	if err != nil {
		s.logger.Errorw("failed to marshal envelope", "error", err, "barcode", stored.Barcode)
	} else if err := s.pub.WriteMessages(ctx, kafka.Message{Value: out}); err != nil {
		// The authoritative record exists; a missed broadcast is a gap for
		// live viewers, not a pipeline failure.
		s.logger.Errorw("failed to republish envelope", "error", err, "barcode", stored.Barcode)
	} else if s.m != nil {
		s.m.Republished.Inc()
	}

	s.countDisposition(broker.Ack)
	return broker.Ack
}

func (s *IngestService) countDisposition(d broker.Disposition) {
	if s.m != nil {
		s.m.MessagesConsumed.WithLabelValues(d.String()).Inc()
	}
}

// Run consumes the ingest topic until ctx is cancelled. Reader errors and
// requeues tear the reader down and rebuild it after the retry interval, so
// uncommitted messages come back.
func (s *IngestService) Run(ctx context.Context, client *broker.Client, topic, group string) {
	s.logger.Infow("starting ingest consumer", "topic", topic, "group", group)

	for {
		if ctx.Err() != nil {
			s.logger.Info("ingest consumer stopped")
			return
		}

		reader := client.NewReader(topic, group)
		err := client.Consume(ctx, reader, s.ProcessMessage)
		reader.Close()

		switch {
		case ctx.Err() != nil:
			s.logger.Info("ingest consumer stopped")
			return
		case errors.Is(err, broker.ErrRequeue):
			s.logger.Warn("message requeued, resuming after delay")
		default:
			s.logger.Errorw("ingest consumer error, reconnecting", "error", err)
		}

		if err := client.Sleep(ctx); err != nil {
			s.logger.Info("ingest consumer stopped")
			return
		}
	}
}
