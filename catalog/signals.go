package catalog

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// SignalKind names a data-quality event raised during resolution.
type SignalKind string

const (
	SignalAmbiguousMatch     SignalKind = "AmbiguousMatch"
	SignalCategoryUnresolved SignalKind = "CategoryUnresolved"
	SignalProbeExhausted     SignalKind = "ProbeExhausted"
)

type Signal struct {
	Kind        SignalKind `json:"kind"`
	Token       string     `json:"token,omitempty"`
	Level       string     `json:"level,omitempty"`
	Step        string     `json:"step,omitempty"`
	TieBreak    string     `json:"tieBreak,omitempty"`
	CategoryIDs []string   `json:"categoryIds,omitempty"`
	Fragments   []string   `json:"fragments,omitempty"`
	At          time.Time  `json:"at"`
}

// SignalSink receives data-quality signals. Implementations must not block
// the request path.
type SignalSink interface {
	Signal(ctx context.Context, s Signal)
}

// MetricsRecorder receives one observation per resolution.
type MetricsRecorder interface {
	RecordResolution(ctx context.Context, schema string, unresolved bool, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordResolution(context.Context, string, bool, time.Duration) {}

// LogSink writes signals to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

func (l LogSink) Signal(_ context.Context, s Signal) {
	l.Logger.Warn("catalog data-quality signal",
		zap.String("kind", string(s.Kind)),
		zap.String("token", s.Token),
		zap.String("level", s.Level),
		zap.String("step", s.Step),
		zap.String("tie_break", s.TieBreak),
		zap.Strings("category_ids", s.CategoryIDs),
		zap.Strings("fragments", s.Fragments),
	)
}

// MultiSink fans a signal out to several sinks.
type MultiSink []SignalSink

func (m MultiSink) Signal(ctx context.Context, s Signal) {
	for _, sink := range m {
		sink.Signal(ctx, s)
	}
}

// Publisher is satisfied by the SNS client in pkg/aws.
type Publisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

// PublishSink forwards signals to a topic asynchronously.
type PublishSink struct {
	Publisher Publisher
	TopicArn  string
	Logger    *zap.Logger
}

func (p PublishSink) Signal(_ context.Context, s Signal) {
	if p.Publisher == nil || p.TopicArn == "" {
		return
	}
	body, err := json.Marshal(s)
	if err != nil {
		p.Logger.Warn("Failed to marshal data-quality signal", zap.Error(err))
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publisher.Publish(bgCtx, p.TopicArn, body); err != nil {
			p.Logger.Warn("Failed to publish data-quality signal", zap.Error(err), zap.String("kind", string(s.Kind)))
		}
	}()
}
