package provider

import "testing"

func TestClassifyTransient(t *testing.T) {
	cases := []string{
		"model is experiencing high demand, try again later",
		"Rate Limit exceeded for project",
		"the server is overloaded",
		"quota exhausted for quota metric",
		"upstream returned 503",
		"gemini status 429: resource exhausted",
	}
	for _, msg := range cases {
		if Classify(msg) != ErrorTransient {
			t.Errorf("Classify(%q) != transient", msg)
		}
		if !IsRetryable(msg) {
			t.Errorf("IsRetryable(%q) = false", msg)
		}
	}
}

func TestClassifySafety(t *testing.T) {
	cases := []string{
		"request blocked by safety system",
		"SAFETY violation detected",
		"prompt was Blocked",
	}
	for _, msg := range cases {
		if Classify(msg) != ErrorSafetyBlocked {
			t.Errorf("Classify(%q) != safety_blocked", msg)
		}
		if IsRetryable(msg) {
			t.Errorf("IsRetryable(%q) = true for safety rejection", msg)
		}
	}
}

// A message matching both vocabularies classifies as safety: retrying a
// rejected prompt burns credits for the same rejection.
func TestClassifySafetyWinsOverTransient(t *testing.T) {
	msg := "blocked due to high demand safety throttling 429"
	if Classify(msg) != ErrorSafetyBlocked {
		t.Fatalf("Classify(%q) = %v, want safety_blocked", msg, Classify(msg))
	}
}

func TestClassifyFatal(t *testing.T) {
	cases := []string{
		"",
		"invalid argument: unsupported aspect ratio",
		"permission denied",
		"billing account not configured",
	}
	for _, msg := range cases {
		if Classify(msg) != ErrorFatal {
			t.Errorf("Classify(%q) != fatal", msg)
		}
		if IsRetryable(msg) {
			t.Errorf("IsRetryable(%q) = true", msg)
		}
	}
}
