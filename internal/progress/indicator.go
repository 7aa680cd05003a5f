package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Indicator shows a spinner with a message on a TTY and stays silent
// otherwise. It is safe for concurrent use.
type Indicator struct {
	mu      sync.Mutex
	out     io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	spin    *spinner.Spinner
}

// NewIndicator creates an Indicator writing to out.
func NewIndicator(out io.Writer, caps TerminalCapabilities) *Indicator {
	symbols := SelectSymbols(caps)
	ind := &Indicator{out: out, caps: caps, symbols: symbols}
	if caps.IsTTY {
		ind.spin = spinner.New(spinner.CharSets[symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(out))
	}
	return ind
}

// Start shows the spinner with message. It replaces the message of a running spinner.
func (i *Indicator) Start(message string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.spin == nil {
		return
	}
	i.spin.Suffix = " " + message
	if !i.spin.Active() {
		i.spin.Start()
	}
}

// Stop hides the spinner.
func (i *Indicator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.spin != nil && i.spin.Active() {
		i.spin.Stop()
	}
}

// Active reports whether the spinner is showing.
func (i *Indicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.spin != nil && i.spin.Active()
}

// Succeed stops the spinner and prints message after the checkmark.
func (i *Indicator) Succeed(message string) {
	i.Stop()
	fmt.Fprintf(i.out, "%s %s\n", i.symbols.Checkmark, message)
}

// Fail stops the spinner and prints message after the failure mark.
func (i *Indicator) Fail(message string) {
	i.Stop()
	fmt.Fprintf(i.out, "%s %s\n", i.symbols.Failure, message)
}
