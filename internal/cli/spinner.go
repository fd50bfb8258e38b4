package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a status line on stderr while a layout or render runs.
// It stops with its context.
type spinner struct {
	msg    string
	cancel context.CancelFunc
	done   chan struct{}
}

func startSpinner(ctx context.Context, msg string) *spinner {
	return startSpinnerTo(ctx, os.Stderr, msg)
}

func startSpinnerTo(ctx context.Context, out io.Writer, msg string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{msg: msg, cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, out)
	return s
}

func (s *spinner) run(ctx context.Context, out io.Writer) {
	defer close(s.done)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "\r%s\r", strings.Repeat(" ", len(s.msg)+4))
			return
		case <-tick.C:
			icon := styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)])
			fmt.Fprintf(out, "\r%s %s", icon, StyleDim.Render(s.msg))
		}
	}
}

// stop clears the line and waits for the animation to exit. Calling it
// again is a no-op.
func (s *spinner) stop() {
	s.cancel()
	<-s.done
}

// fail stops the spinner and prints msg as an error.
func (s *spinner) fail(msg string) {
	s.stop()
	printError("%s", msg)
}
