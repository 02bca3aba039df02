package flagcache

import (
	"github.com/teracrafts/flagcache-go/types"
)

// EvaluationResult is the outcome of one flag check.
type EvaluationResult = types.EvaluationResult

// EvaluationReason represents the reason Flipt gave for a result.
type EvaluationReason = types.EvaluationReason

const (
	ReasonUnknown  = types.ReasonUnknown
	ReasonDisabled = types.ReasonDisabled
	ReasonMatch    = types.ReasonMatch
	ReasonDefault  = types.ReasonDefault
	ReasonError    = types.ReasonError
)
