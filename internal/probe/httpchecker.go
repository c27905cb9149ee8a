package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pulsemon/pulsemon/internal/domain"
)

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// Check issues a GET and maps the response to an outcome: 2xx is UP, anything
// else (non-2xx, timeout, refused connection, DNS failure) is DOWN. Only a
// request that cannot be built at all is ERROR.
func (h *HTTPChecker) Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome {
	now := time.Now().UTC()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return domain.CheckOutcome{
			Status:    domain.StatusError,
			Error:     trimErr(err.Error()),
			CheckedAt: now,
		}
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		return domain.CheckOutcome{
			Status:    domain.StatusDown,
			Error:     classifyTransportErr(err),
			CheckedAt: now,
		}
	}
	defer resp.Body.Close()
	latency := time.Since(start).Seconds() * 1000

	out := domain.CheckOutcome{
		ResponseTimeMS: msPtr(latency),
		CheckedAt:      now,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out.Status = domain.StatusUp
	} else {
		out.Status = domain.StatusDown
		out.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return out
}

func classifyTransportErr(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timeout"
	}
	return trimErr("connection error: " + err.Error())
}
