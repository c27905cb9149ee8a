package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// maxBodyBytes caps how much of a page we scan for the keyword.
const maxBodyBytes = 1 << 20

type KeywordChecker struct {
	Client *http.Client
}

func NewKeywordChecker(timeout time.Duration) *KeywordChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeywordChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// Check is UP only when the response is 2xx AND the body contains the
// monitor's keyword as an exact, case-sensitive substring. The error detail
// names which condition failed.
func (c *KeywordChecker) Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome {
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
	resp, err := c.Client.Do(req)
	if err != nil {
		return domain.CheckOutcome{
			Status:    domain.StatusDown,
			Error:     classifyTransportErr(err),
			CheckedAt: now,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	latency := time.Since(start).Seconds() * 1000
	if err != nil {
		return domain.CheckOutcome{
			Status:         domain.StatusDown,
			ResponseTimeMS: msPtr(latency),
			Error:          trimErr("read body: " + err.Error()),
			CheckedAt:      now,
		}
	}

	out := domain.CheckOutcome{
		ResponseTimeMS: msPtr(latency),
		CheckedAt:      now,
	}
	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		out.Status = domain.StatusDown
		out.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	case m.Keyword == "":
		out.Status = domain.StatusDown
		out.Error = "no keyword configured"
	case strings.Contains(string(body), m.Keyword):
		out.Status = domain.StatusUp
	default:
		out.Status = domain.StatusDown
		out.Error = fmt.Sprintf("keyword %q not found", m.Keyword)
	}
	return out
}
