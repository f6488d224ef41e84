package catalog

import (
	"time"

	"go.uber.org/zap"
)

// WarningCode identifies a caller-visible degradation of a result.
type WarningCode string

const (
	WarnCategoryUnresolved WarningCode = "category_unresolved"
	WarnTokenUnresolved    WarningCode = "token_unresolved"
	WarnProbeExhausted     WarningCode = "probe_exhausted"
)

type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Detail  []string    `json:"detail,omitempty"`
}

// TraceStep records how one request token was located.
type TraceStep struct {
	Level        string `json:"level"`
	Token        string `json:"token"`
	Resolved     bool   `json:"resolved"`
	Step         string `json:"step,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	Candidates   int    `json:"candidates,omitempty"`
	OwningRootID string `json:"owningRootId,omitempty"`
}

// Trace is the operational record of one resolution. It is logged, never
// returned to end users.
type Trace struct {
	Steps           []TraceStep     `json:"steps"`
	TargetID        string          `json:"targetId,omitempty"`
	LeafCount       int             `json:"leafCount"`
	DescendantCount int             `json:"descendantCount"`
	Schema          FragmentKind    `json:"schema,omitempty"`
	Fragments       []FragmentCount `json:"fragments,omitempty"`
	PriceField      string          `json:"priceField,omitempty"`
	Duration        time.Duration   `json:"duration"`
}

// Fields renders the trace as zap fields.
func (t *Trace) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Any("steps", t.Steps),
		zap.String("target_id", t.TargetID),
		zap.Int("leaf_count", t.LeafCount),
		zap.Int("descendant_count", t.DescendantCount),
		zap.String("schema", string(t.Schema)),
		zap.Any("fragments", t.Fragments),
		zap.Duration("duration", t.Duration),
	}
	if t.PriceField != "" {
		fields = append(fields, zap.String("price_field", t.PriceField))
	}
	return fields
}
