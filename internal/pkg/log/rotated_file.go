package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxLogFiles is the number of log files kept in the log directory, the
// current one included.
const maxLogFiles = 10

// rotatedFile writes to <dir>/<prefix>-<timestamp>.log. When rotation is on,
// the first write after the period elapsed opens a new file and the oldest
// files beyond Keep are removed.
type rotatedFile struct {
	config *logfileConfig
	now    func() time.Time

	mu     sync.Mutex
	file   *os.File
	next   time.Time
	closed bool
}

func newRotatedFile(config *logfileConfig) *rotatedFile {
	rf := &rotatedFile{config: config, now: time.Now}

	rf.mu.Lock()
	rf.open()
	rf.mu.Unlock()

	return rf
}

func (d *rotatedFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, os.ErrClosed
	}
	if d.config.Rotate && !d.next.IsZero() && !d.now().Before(d.next) {
		d.open()
	}
	if d.file == nil {
		return 0, ErrLogFileUnavailable
	}

	return d.file.Write(p)
}

func (d *rotatedFile) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}

// open replaces the current file. Failures are reported on stderr and leave
// file logging off until the next rotation. Callers hold d.mu.
func (d *rotatedFile) open() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}

	now := d.now()
	if d.config.Rotate && d.config.RotatePeriod > 0 {
		d.next = now.Add(d.config.RotatePeriod)
	}

	if err := os.MkdirAll(d.config.Dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", ErrLogFileUnavailable, err)
		return
	}

	name := filepath.Join(d.config.Dir, fmt.Sprintf("%s-%s.log", d.config.Prefix, now.Format("2006.01.02T15-04-05")))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", ErrLogFileUnavailable, err)
		return
	}
	d.file = file

	d.prune()
}

// prune removes the oldest log files of this prefix beyond config.Keep.
// Timestamped names sort chronologically.
func (d *rotatedFile) prune() {
	if d.config.Keep <= 0 {
		return
	}

	entries, err := os.ReadDir(d.config.Dir)
	if err != nil {
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), d.config.Prefix+"-") && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for len(names) > d.config.Keep {
		os.Remove(filepath.Join(d.config.Dir, names[0]))
		names = names[1:]
	}
}
