package admission

import (
	"context"
	"time"

	"github.com/brightloop/agentcore/internal/ambient"
)

// Decision is the outcome of an admission check.
type Decision string

const (
	DecisionAllowed     Decision = "Allowed"
	DecisionBlocked     Decision = "Blocked"
	DecisionRateLimited Decision = "RateLimited"
)

// Entry is one audit record, shaped per spec.md §4.5.
type Entry struct {
	Tenant    string
	ClientIP  string
	URL       string
	Domain    string
	Decision  Decision
	Reason    string
	RiskScore float64
	UserAgent string
	RequestID string
	Timestamp time.Time
}

// Sink persists admission decisions. Implementations are injected by the
// embedding application (the core does not prescribe a storage engine).
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// NoOpSink discards every entry. Useful as a safe default.
type NoOpSink struct{}

func (NoOpSink) Write(context.Context, Entry) error { return nil }

// AsyncAuditor wraps a Sink so writes never block or fail the admission
// path: Record launches the write in a goroutine and only logs failures.
type AsyncAuditor struct {
	sink   Sink
	logger ambient.Logger
}

// NewAsyncAuditor builds an AsyncAuditor over sink, logging write
// failures through logger instead of propagating them.
func NewAsyncAuditor(sink Sink, logger ambient.Logger) *AsyncAuditor {
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = ambient.NoOpLogger{}
	}
	return &AsyncAuditor{sink: sink, logger: logger}
}

// Record writes entry asynchronously. It never blocks the caller and
// never surfaces an error — a failed audit write must not fail
// admission (spec.md §4.5).
func (a *AsyncAuditor) Record(entry Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.sink.Write(ctx, entry); err != nil {
			a.logger.Warn("audit write failed", map[string]interface{}{
				"error":  err.Error(),
				"tenant": entry.Tenant,
			})
		}
	}()
}
