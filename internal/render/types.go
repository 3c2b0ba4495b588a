package render

import (
	"encoding/json"
	"fmt"
	"time"
)

// SectionInstance is one section placed on a page.
type SectionInstance struct {
	Type       string                   `json:"type"`
	Settings   map[string]any           `json:"settings,omitempty"`
	Blocks     map[string]BlockInstance `json:"blocks,omitempty"`
	BlockOrder []string                 `json:"block_order,omitempty"`
}

// UnmarshalJSON accepts both block_order and blockOrder.
func (s *SectionInstance) UnmarshalJSON(data []byte) error {
	type plain SectionInstance
	var decoded struct {
		plain
		BlockOrderCamel []string `json:"blockOrder,omitempty"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = SectionInstance(decoded.plain)
	if s.BlockOrder == nil && decoded.BlockOrderCamel != nil {
		s.BlockOrder = decoded.BlockOrderCamel
	}
	return nil
}

// BlockInstance is one block nested inside a section instance.
type BlockInstance struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Page is an ordered set of section instances keyed by instance id.
type Page struct {
	Sections map[string]SectionInstance `json:"sections"`
	Order    []string                   `json:"order,omitempty"`
}

// Status describes how a fragment was produced.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMissing  Status = "missing"
	StatusFallback Status = "fallback"
)

// Result is a rendered fragment with diagnostics.
type Result struct {
	HTML     string
	Status   Status
	Err      error
	Duration time.Duration
}

// Fallback reasons.
const (
	ReasonMissing    = "missing"
	ReasonStore      = "store"
	ReasonCompile    = "compile"
	ReasonEvaluation = "evaluation"
	ReasonTimeout    = "timeout"
	ReasonPanic      = "panic"
	ReasonCanceled   = "canceled"
)

// EvaluationError describes a render failure that was turned into fallback
// output. It never escapes the render path.
type EvaluationError struct {
	Kind   string
	Type   string
	Reason string
	Cause  error
}

func (e *EvaluationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("render %s %q: %s", e.Kind, e.Type, e.Reason)
	}
	return fmt.Sprintf("render %s %q: %s: %v", e.Kind, e.Type, e.Reason, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}
