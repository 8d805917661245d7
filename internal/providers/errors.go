package providers

import "strings"

// ErrorType buckets provider failures for the failover policy in the
// workflows: quota and permanent errors bench a provider, rate and
// transient errors earn a short wait, context errors tell the caller to
// shrink the prompt.
type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// classPatterns maps message fragments to buckets, checked in order. The
// OpenAI-compatible backends this repo ships (OpenAI, Groq, custom bases)
// all phrase these conditions with one of the fragments.
var classPatterns = []struct {
	fragment string
	class    ErrorType
}{
	{"quota", ErrorQuota},
	{"credit", ErrorQuota},
	{"rate", ErrorRate},
	{"429", ErrorRate},
	{"context", ErrorContext},
	{"too long", ErrorContext},
	{"timeout", ErrorTransient},
	{"temporarily", ErrorTransient},
	{"unavailable", ErrorTransient},
}

// ClassifyError inspects an error message and picks the failover bucket.
// Unrecognized messages classify as permanent.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, p := range classPatterns {
		if strings.Contains(msg, p.fragment) {
			return p.class
		}
	}
	return ErrorPermanent
}
