package supervisor

import (
	"context"
	"net/http"
	"time"
)

// probeHealth polls spec.HealthCheck.URL every Interval. An HTTP 5xx status
// or a request/network failure counts as one failure; Retries consecutive
// failures signal fail, after which probeHealth returns. A successful
// probe resets the streak. probeHealth returns on its own once it
// signals, or when ctx is cancelled.
func (s *Supervisor) probeHealth(ctx context.Context, spec ServiceSpec, fail chan<- struct{}) {
	hc := spec.HealthCheck
	interval := hc.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	retries := hc.Retries
	if retries <= 0 {
		retries = 3
	}

	client := &http.Client{Timeout: timeout}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Give the child a full interval to come up before the first probe.
	var streak int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if probeOnce(ctx, client, hc.URL) {
				streak = 0
				continue
			}
			streak++
			s.logger.Warn("health probe failed", "service", spec.Name, "streak", streak, "retries", retries)
			if streak >= retries {
				select {
				case fail <- struct{}{}:
				default:
				}
				return
			}
		}
	}
}

func probeOnce(ctx context.Context, client *http.Client, url string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
