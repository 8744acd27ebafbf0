// Package spinner draws a progress indicator while a long scoring call runs.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Interval is the redraw period.
var Interval = 80 * time.Millisecond

// Start displays an animated spinner with the given message and the elapsed
// time on w. Call the returned function to stop the spinner and clear the
// line; it returns the total elapsed time.
func Start(w io.Writer, message string) (stop func() time.Duration) {
	done := make(chan struct{})
	cleared := make(chan struct{})
	started := time.Now()
	var stopOnce sync.Once
	go func() {
		ticker := time.NewTicker(Interval)
		defer ticker.Stop()

		width := 0
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
				close(cleared)
				return
			case <-ticker.C:
				line := fmt.Sprintf("%s %s (%ds)", frames[i%len(frames)], message, int(time.Since(started).Seconds()))
				width = max(width, len(line))
				fmt.Fprintf(w, "\r%s", line) //nolint:errcheck
			}
		}
	}()
	return func() time.Duration {
		stopOnce.Do(func() {
			close(done)
		})
		<-cleared
		return time.Since(started)
	}
}
