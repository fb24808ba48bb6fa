package crawler

import (
	"fmt"
	"time"
)

// CompletionMessage summarises a finished run
func CompletionMessage(provider string, state RunState, end time.Time) string {
	h, m, s := splitDuration(end.Sub(state.StartTime))
	return fmt.Sprintf("get %s news finished\nspend time: %d hours %d minutes %d seconds\nticker count: %d, total news count: %d",
		provider, h, m, s, state.ProcessedTickers, state.TotalInserted)
}

// FailureMessage reports where a run stopped
func FailureMessage(provider string, state RunState) string {
	return fmt.Sprintf("get %s news error\ndone ticker count:%d current ticker: %s",
		provider, state.ProcessedTickers, state.CurrentTicker)
}

// splitDuration floors d to whole seconds and splits it
func splitDuration(d time.Duration) (hours, minutes, seconds int64) {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return total / 3600, (total / 60) % 60, total % 60
}
