// Package ui reports the queue progress on the terminal.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/gosuri/uilive"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

// UI receives the queue progress.
type UI interface {
	Progress(index, total int, status, detail string)
	Done(summary string)
}

// Nop discards every update.
type Nop struct{}

func (Nop) Progress(int, int, string, string) {}
func (Nop) Done(string)                       {}

// Live rewrites the progress lines in place. While it is attached, stdout
// logs are written above the progress lines.
type Live struct {
	mu       sync.Mutex
	writer   *uilive.Writer
	attached bool
}

// NewLive creates a Live UI writing to out.
func NewLive(out io.Writer) *Live {
	writer := uilive.New()
	writer.Out = out

	return &Live{writer: writer}
}

// Attach routes stdout logging through the live writer.
func (l *Live) Attach() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.attached {
		return
	}
	log.SetStdout(l.writer.Bypass())
	l.attached = true
}

// Detach restores stdout logging.
func (l *Live) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.attached {
		return
	}
	log.SetStdout(nil)
	l.attached = false
}

func (l *Live) Progress(index, total int, status, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.writer, "%s\n  %s\n", status, detail)
	l.writer.Flush()
}

func (l *Live) Done(summary string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.writer, summary)
	l.writer.Flush()
}
