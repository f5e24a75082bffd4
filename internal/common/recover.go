package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
)

// CrashLogDir is where fatal crash reports are written
var CrashLogDir = "./logs"

// InstallCrashHandler sets the crash report directory. Call it first in main,
// followed by defer RecoverWithCrashFile().
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// RecoverWithCrashFile writes a crash report and exits on panic
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		path := WriteCrashFile(r, stack(false))
		fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to: %s !!!\nPanic: %v\n", path, r)
		os.Exit(1)
	}
}

// WriteCrashFile writes the panic value plus every goroutine stack and
// returns the report path
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	now := time.Now()
	path := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	var report bytes.Buffer
	fmt.Fprintf(&report, "=== QUARRY CRASH REPORT ===\nTime: %s\nVersion: %s\n\n", now.Format(time.RFC3339), GetFullVersion())
	fmt.Fprintf(&report, "=== PANIC VALUE ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK TRACE ===\n%s\n\n", stackTrace)
	fmt.Fprintf(&report, "=== ALL GOROUTINES ===\n%s\n", stack(true))

	if err := os.WriteFile(path, report.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report.String())
	}
	return path
}

// SafeGo runs fn on its own goroutine. A panic is logged and swallowed so a
// failing subscriber or stream writer cannot take the server down.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stack(false)).
					Msg("Recovered from panic in goroutine")
			}
		}()
		fn()
	}()
}

func stack(all bool) string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, all)
		if n < len(buf) || len(buf) >= 64*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
