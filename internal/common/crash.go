// -----------------------------------------------------------------------
// Crash protection - panic recovery with a crash file for postmortems
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir is where crash reports are written. Set during startup.
var CrashLogDir = "./logs"

// InstallCrashHandler prepares the crash log directory. Call at the very
// start of main() together with a deferred RecoverWithCrashFile.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create log directory: %v\n", err)
	}
}

// RecoverWithCrashFile is a deferred panic recovery that writes a crash
// report and exits.
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, currentStack())
		os.Exit(1)
	}
}

// WriteCrashFile writes a crash report and returns its path. Unbuffered
// file IO on purpose; the process is about to die.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	timestamp := time.Now().Format("2006-01-02T15-04-05")
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", timestamp))

	var report bytes.Buffer
	report.WriteString("=== TEMPO CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetVersion())

	fmt.Fprintf(&report, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK ===\n%s\n", stackTrace)
	fmt.Fprintf(&report, "=== ALL GOROUTINES ===\n%s\n", allGoroutineStacks())

	fmt.Fprintf(&report, "=== SYSTEM ===\n")
	fmt.Fprintf(&report, "NumGoroutine: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "GOOS/GOARCH: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	file, err := os.OpenFile(crashPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create crash file: %v\n%s", err, report.String())
		return ""
	}
	if _, err := file.Write(report.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to write crash file: %v\n%s", err, report.String())
	}
	file.Sync()
	file.Close()

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\nPanic: %v\n", crashPath, panicVal)
	return crashPath
}

func currentStack() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
		if len(buf) > 64*1024*1024 {
			return string(buf[:runtime.Stack(buf, true)])
		}
	}
}
