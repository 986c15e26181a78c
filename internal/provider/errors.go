package provider

import "strings"

// ErrorClass is the verdict of Classify. Both retry layers (the engine's
// short inner retry and the orchestrator's escalating outer retry) consume
// this single classification; neither keeps its own keyword list.
type ErrorClass int

const (
	ErrorFatal ErrorClass = iota
	ErrorTransient
	ErrorSafetyBlocked
)

// ErrorType strings carried on results for callers and i18n mapping.
const (
	ErrorTypeTransient     = "transient"
	ErrorTypeSafetyBlocked = "safety_blocked"
	ErrorTypeFatal         = "fatal"
)

var transientKeywords = []string{
	"high demand",
	"rate limit",
	"overloaded",
	"quota",
	"503",
	"429",
}

var safetyKeywords = []string{
	"safety",
	"blocked",
}

// Classify maps an error message to its class. Safety takes priority: a
// safety rejection is never retried even when the message also carries
// quota-like wording.
func Classify(msg string) ErrorClass {
	lower := strings.ToLower(msg)
	for _, kw := range safetyKeywords {
		if strings.Contains(lower, kw) {
			return ErrorSafetyBlocked
		}
	}
	for _, kw := range transientKeywords {
		if strings.Contains(lower, kw) {
			return ErrorTransient
		}
	}
	return ErrorFatal
}

// IsRetryable reports whether the message indicates a transient failure.
func IsRetryable(msg string) bool {
	return Classify(msg) == ErrorTransient
}

func (c ErrorClass) String() string {
	switch c {
	case ErrorTransient:
		return ErrorTypeTransient
	case ErrorSafetyBlocked:
		return ErrorTypeSafetyBlocked
	default:
		return ErrorTypeFatal
	}
}
