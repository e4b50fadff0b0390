package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gameradar/dealwatch/internal/model"
)

// Reporter posts pass lifecycle updates to the status channel. Reporting is
// best-effort end to end: a dead status webhook never fails a pass.
type Reporter struct {
	d *Dispatcher
}

// NewReporter wraps a dispatcher for status reporting.
func NewReporter(d *Dispatcher) *Reporter {
	return &Reporter{d: d}
}

// Started announces that a pass has begun.
func (r *Reporter) Started(ctx context.Context, passID string) {
	r.send(ctx, &Message{Content: fmt.Sprintf("🔄 Pass `%s` started", passID)})
}

// Success posts the end-of-pass summary.
func (r *Reporter) Success(ctx context.Context, report *model.PassReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Pass `%s` finished in %s\n", report.PassID, report.Duration.Round(time.Second))
	fmt.Fprintf(&b, "considered %d · enriched %d · suspicious %d · dispatched %d · suppressed %d",
		report.Considered, report.Enriched, report.Suspicious, report.Dispatched, report.Suppressed)

	var failed []string
	for name, stat := range report.Sources {
		if stat.Error != "" {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "\nsources failed: %s", strings.Join(failed, ", "))
	}
	r.send(ctx, &Message{Content: b.String()})
}

// Error announces a fatal pass failure.
func (r *Reporter) Error(ctx context.Context, passID string, err error) {
	r.send(ctx, &Message{Content: fmt.Sprintf("❌ Pass `%s` failed: %v", passID, err)})
}

func (r *Reporter) send(ctx context.Context, msg *Message) {
	if _, err := r.d.Send(ctx, ChannelStatus, msg); err != nil {
		zap.L().Warn("dispatch: status report failed", zap.Error(err))
	}
}
