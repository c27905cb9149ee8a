package probe

import (
	"context"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// Checker performs a single probe of one monitor and reports the outcome.
// Implementations must not panic and must not block past their own timeout.
type Checker interface {
	Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome
}

func msPtr(ms float64) *float64 { return &ms }

const maxErrorLen = 200

// trimErr keeps error details short enough for log rows and alert payloads.
func trimErr(s string) string {
	if len(s) > maxErrorLen {
		return s[:maxErrorLen]
	}
	return s
}
