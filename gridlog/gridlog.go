// Package gridlog is gridmq's ambient structured logger: buffered,
// severity-leveled, allocation-conscious on the hot path. Grounded on
// cmn/nlog's pooled fixed-size buffer + dual stderr/file write design.
package gridlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

const maxLineSize = 2 * 1024

var bufPool = sync.Pool{New: func() any { return make([]byte, 0, maxLineSize) }}

var (
	mu       sync.Mutex
	file     *os.File
	toStderr = true
	minSev   atomic.Int32 // severity
)

// Init opens a log file under dir (if non-empty, mirroring GRID_LOG_DIR) in
// addition to stderr. Safe to call multiple times; the most recent dir wins.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(dir, fmt.Sprintf("gridmq.%d.log", os.Getpid()))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if file != nil {
		file.Close()
	}
	file = f
	return nil
}

// SetVerbose silences Info-level lines when false, matching GRID_PRINT_ERRORS
// semantics (warn-and-above only when quiet).
func SetVerbose(v bool) {
	if v {
		minSev.Store(int32(sevInfo))
	} else {
		minSev.Store(int32(sevWarn))
	}
}

func logf(sev severity, format string, a ...any) {
	if int32(sev) < minSev.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	buf := bufPool.Get().([]byte)[:0]
	buf = append(buf, sevChar[sev], ' ')
	buf = time.Now().AppendFormat(buf, "15:04:05.000000")
	buf = append(buf, ' ')
	buf = fmt.Appendf(buf, format, a...)
	if len(buf) == 0 || buf[len(buf)-1] != '\n' {
		buf = append(buf, '\n')
	}
	if toStderr || sev >= sevWarn {
		os.Stderr.Write(buf)
	}
	if file != nil {
		file.Write(buf)
	}
	bufPool.Put(buf[:0])
}

func Infof(format string, a ...any)  { logf(sevInfo, format, a...) }
func Warnf(format string, a ...any)  { logf(sevWarn, format, a...) }
func Errorf(format string, a ...any) { logf(sevErr, format, a...) }

func Infoln(a ...any)  { logf(sevInfo, "%s", fmt.Sprintln(a...)) }
func Warnln(a ...any)  { logf(sevWarn, "%s", fmt.Sprintln(a...)) }
func Errorln(a ...any) { logf(sevErr, "%s", fmt.Sprintln(a...)) }
