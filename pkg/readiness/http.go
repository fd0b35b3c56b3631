package readiness

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker probes an HTTP endpoint. Any status below 500 counts as
// serving: a 3xx redirect to HTTPS or a 401 from an auth-guarded page still
// proves the proxy and application are answering.
type HTTPChecker struct {
	URL    string
	Client *http.Client
}

// NewHTTPChecker creates an HTTP checker with a 10 second timeout.
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL: url,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (h *HTTPChecker) Name() string {
	return h.URL
}

func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Result{
			Ready:     false,
			Message:   fmt.Sprintf("failed to create request: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{
			Ready:     false,
			Message:   fmt.Sprintf("request failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer resp.Body.Close()

	ready := resp.StatusCode < http.StatusInternalServerError
	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	return Result{
		Ready:     ready,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
