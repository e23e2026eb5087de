package http

import (
	"bytes"
	"net/http"
	"time"

	"log/slog"

	"github.com/yanqian/weather-export/internal/infra/config"
)

// withRetry replays idempotent reads that failed with 503, which the export pipeline
// returns for store timeouts. Exports are never streamed, so buffering the response is safe.
// A retry is skipped when another attempt as slow as the last one would run past writeTimeout.
func withRetry(handler http.Handler, cfg config.RetryConfig, writeTimeout time.Duration, logger *slog.Logger) http.Handler {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return handler
	}
	exclusions := make(map[string]struct{}, len(cfg.Exclude))
	for _, path := range cfg.Exclude {
		exclusions[path] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := exclusions[r.URL.Path]; skip || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			handler.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			if attempt > 1 {
				delay := retryDelay(cfg.BaseBackoff, attempt)
				timer := time.NewTimer(delay)
				select {
				case <-r.Context().Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}

			attemptStart := time.Now()
			recorder := newRetryResponseRecorder(w)
			handler.ServeHTTP(recorder, r.Clone(r.Context()))
			if !recorder.retryable() || attempt == cfg.MaxAttempts || r.Context().Err() != nil {
				recorder.Commit()
				return
			}
			if writeTimeout > 0 {
				next := time.Since(start) + retryDelay(cfg.BaseBackoff, attempt+1) + time.Since(attemptStart)
				if next >= writeTimeout {
					logger.Warn("retry would exceed write deadline, returning failure", "path", r.URL.Path, "attempt", attempt, "write_timeout", writeTimeout.String())
					recorder.Commit()
					return
				}
			}

			logger.Warn("transient failure, retrying request", "path", r.URL.Path, "status", recorder.statusCode, "attempt", attempt)
		}
	})
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<(attempt-2))
}

type retryResponseRecorder struct {
	dst        http.ResponseWriter
	header     http.Header
	body       bytes.Buffer
	statusCode int
	wroteHead  bool
}

func newRetryResponseRecorder(dst http.ResponseWriter) *retryResponseRecorder {
	return &retryResponseRecorder{
		dst:        dst,
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (r *retryResponseRecorder) Header() http.Header {
	return r.header
}

func (r *retryResponseRecorder) WriteHeader(status int) {
	if r.wroteHead {
		return
	}
	r.statusCode = status
	r.wroteHead = true
}

func (r *retryResponseRecorder) Write(b []byte) (int, error) {
	return r.body.Write(b)
}

func (r *retryResponseRecorder) Commit() {
	dstHeader := r.dst.Header()
	for k, values := range r.header {
		dstHeader[k] = append([]string(nil), values...)
	}
	r.dst.WriteHeader(r.statusCode)
	if r.body.Len() > 0 {
		_, _ = r.dst.Write(r.body.Bytes())
	}
}

func (r *retryResponseRecorder) retryable() bool {
	return r.statusCode == http.StatusServiceUnavailable
}

func (r *retryResponseRecorder) Flush() {}
