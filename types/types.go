package types

// EvaluationReason represents the reason the remote service gave for a result.
type EvaluationReason string

const (
	ReasonUnknown  EvaluationReason = "UNKNOWN_EVALUATION_REASON"
	ReasonDisabled EvaluationReason = "FLAG_DISABLED_EVALUATION_REASON"
	ReasonMatch    EvaluationReason = "MATCH_EVALUATION_REASON"
	ReasonDefault  EvaluationReason = "DEFAULT_EVALUATION_REASON"
	ReasonError    EvaluationReason = "ERROR_EVALUATION_REASON"
)

// EvaluationResult is the outcome of one flag check.
// Results are values; the cache hands out copies and never mutates them.
type EvaluationResult struct {
	FlagKey    string           `json:"flagKey"`
	Enabled    bool             `json:"enabled"`
	VariantKey string           `json:"variantKey,omitempty"`
	Reason     EvaluationReason `json:"reason,omitempty"`
}

// HasVariant reports whether the result came from a variant evaluation that matched.
func (r EvaluationResult) HasVariant() bool {
	return r.VariantKey != ""
}
