package service

import (
	"context"

	"go.uber.org/zap"

	"mfgstream/internal/broker"
	"mfgstream/internal/model"
)

// Broadcaster fans one frame out to every live subscriber.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// BroadcastService feeds the processed-results topic into the hub for the
// process lifetime. Broker outages produce a gap for subscribers, never a
// crash.
type BroadcastService struct {
	hub    Broadcaster
	logger *zap.SugaredLogger
}

func NewBroadcastService(hub Broadcaster, logger *zap.SugaredLogger) *BroadcastService {
	return &BroadcastService{hub: hub, logger: logger}
}

// HandleEnvelope validates one republished frame and forwards the payload
// verbatim to the hub. Frames that do not decode to a known envelope (in
// particular an unknown status label) are dropped; the broadcast stream is
// best effort, so there is nothing to requeue.
func (s *BroadcastService) HandleEnvelope(_ context.Context, payload []byte) broker.Disposition {
	var env model.Envelope
	if err := jsonStd.Unmarshal(payload, &env); err != nil {
		s.logger.Warnw("dropping undecodable envelope", "error", err)
		return broker.Reject
	}

	s.hub.Broadcast(payload)
	return broker.Ack
}

// Run consumes the processed-results topic until ctx is cancelled,
// reconnecting after the retry interval on broker failure.
func (s *BroadcastService) Run(ctx context.Context, client *broker.Client, topic, group string) {
	s.logger.Infow("starting broadcast consumer", "topic", topic, "group", group)

	for {
		if ctx.Err() != nil {
			s.logger.Info("broadcast consumer stopped")
			return
		}

		reader := client.NewReader(topic, group)
		err := client.Consume(ctx, reader, s.HandleEnvelope)
		reader.Close()

		if ctx.Err() != nil {
			s.logger.Info("broadcast consumer stopped")
			return
		}
		s.logger.Errorw("broadcast consumer error, reconnecting", "error", err)

		if err := client.Sleep(ctx); err != nil {
			s.logger.Info("broadcast consumer stopped")
			return
		}
	}
}
