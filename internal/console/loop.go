package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"livetext/internal/hub"
)

const (
	NoRecipientsNotice = "No browser connected. Please open/refresh the page."
	failureNotice      = "Failed to send to a client (they may have disconnected): %v"
	sentNotice         = "Sent: '%s'"

	maxLineSize = 1 << 20
)

// Broadcaster delivers one line to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) hub.Result
}

type Options struct {
	Prompt string
	// SendEmptyLines fans out empty lines silently. When false they are dropped.
	SendEmptyLines bool
}

type styles struct {
	sent    lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return styles{
		sent:    base.Foreground(lipgloss.Color("10")),
		warning: base.Foreground(lipgloss.Color("11")),
		failure: base.Foreground(lipgloss.Color("9")),
	}
}

// Loop reads operator lines and broadcasts each one before reading the next.
type Loop struct {
	in          io.Reader
	out         io.Writer
	broadcaster Broadcaster
	opts        Options
	styles      styles
}

func NewLoop(in io.Reader, out io.Writer, broadcaster Broadcaster, opts Options) *Loop {
	return &Loop{
		in:          in,
		out:         out,
		broadcaster: broadcaster,
		opts:        opts,
		styles:      newStyles(out),
	}
}

type readResult struct {
	line string
	err  error
}

// Run blocks until ctx is canceled, input ends, or reading fails. The read
// itself happens on a separate goroutine, so cancellation does not wait for
// the operator to press enter.
func (l *Loop) Run(ctx context.Context) error {
	requests := make(chan struct{})
	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)

	go l.readLines(requests, lines, done)

	for {
		fmt.Fprint(l.out, l.opts.Prompt)

		select {
		case requests <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		var res readResult
		select {
		case res = <-lines:
		case <-ctx.Done():
			return nil
		}

		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				slog.Info("Operator input closed")
				return nil
			}
			return fmt.Errorf("failed to read operator input: %w", res.err)
		}

		l.handleLine(ctx, res.line)
	}
}

// readLines reads one line per request so nothing is consumed ahead of the prompt.
func (l *Loop) readLines(requests <-chan struct{}, lines chan<- readResult, done <-chan struct{}) {
	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for {
		select {
		case <-requests:
		case <-done:
			return
		}

		var res readResult
		if scanner.Scan() {
			res.line = scanner.Text()
		} else if res.err = scanner.Err(); res.err == nil {
			res.err = io.EOF
		}

		select {
		case lines <- res:
		case <-done:
			return
		}
		if res.err != nil {
			return
		}
	}
}

func (l *Loop) handleLine(ctx context.Context, line string) {
	if line == "" && !l.opts.SendEmptyLines {
		return
	}

	result := l.broadcaster.Broadcast(ctx, line)
	if result.Recipients == 0 {
		l.println(l.styles.warning, NoRecipientsNotice)
		return
	}

	for _, f := range result.Failures {
		slog.Warn("Delivery failed", "client_id", f.ClientID, "error", f.Err)
		l.println(l.styles.failure, fmt.Sprintf(failureNotice, f.Err))
	}

	if line != "" {
		l.println(l.styles.sent, fmt.Sprintf(sentNotice, line))
	}
}

func (l *Loop) println(style lipgloss.Style, text string) {
	fmt.Fprintln(l.out, style.Render(text))
}
