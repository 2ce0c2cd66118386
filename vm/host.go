package vm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Host is the effect interface the VM drives. Everything externally
// observable besides diagnostics goes through it: console output, console
// input, sleeping, and GPIO writes. Tests substitute a recording
// implementation; embedders wire it to their board or terminal.
type Host interface {
	// PrintLine writes s followed by a line terminator.
	PrintLine(s string)

	// ReadLine reads one input line, waiting at most timeout. The second
	// return is false when the timeout elapsed with no input.
	ReadLine(timeout time.Duration) (string, bool)

	// Sleep blocks for the given duration.
	Sleep(d time.Duration)

	// SetPinOutput configures a pin for output.
	SetPinOutput(pin uint8)

	// WritePin drives a configured pin high or low.
	WritePin(pin uint8, high bool)
}

// ConsoleHost adapts an io.Reader/io.Writer pair (typically stdin/stdout)
// to the Host interface. Pin operations have no hardware to reach, so
// they are logged instead; this is what the CLI uses when running a
// program off-board.
type ConsoleHost struct {
	Out io.Writer

	in    io.Reader
	once  sync.Once
	lines chan string
}

// NewConsoleHost creates a host over the given streams.
func NewConsoleHost(in io.Reader, out io.Writer) *ConsoleHost {
	return &ConsoleHost{Out: out, in: in}
}

// PrintLine writes s and a newline to the output stream.
func (h *ConsoleHost) PrintLine(s string) {
	fmt.Fprintln(h.Out, s)
}

// ReadLine reads one line from the input stream, honoring the timeout.
// The reader goroutine is started on first use and feeds a channel, so a
// timed-out line is delivered to the next call rather than lost.
func (h *ConsoleHost) ReadLine(timeout time.Duration) (string, bool) {
	h.once.Do(func() {
		h.lines = make(chan string)
		go func() {
			scanner := bufio.NewScanner(h.in)
			for scanner.Scan() {
				h.lines <- scanner.Text()
			}
			close(h.lines)
		}()
	})

	select {
	case line, ok := <-h.lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-time.After(timeout):
		return "", false
	}
}

// Sleep blocks the calling goroutine.
func (h *ConsoleHost) Sleep(d time.Duration) {
	time.Sleep(d)
}

// SetPinOutput logs the direction change; there is no console GPIO.
func (h *ConsoleHost) SetPinOutput(pin uint8) {
	log.Debugf("pin %d set to output", pin)
}

// WritePin logs the level change.
func (h *ConsoleHost) WritePin(pin uint8, high bool) {
	level := "LOW"
	if high {
		level = "HIGH"
	}
	log.Debugf("pin %d driven %s", pin, level)
}
