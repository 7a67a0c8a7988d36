package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
)

const (
	// LogFileName receives the structured log in serve mode.
	LogFileName = "extauth.log"
	// ErrFileName receives everything written to stderr, including crash output.
	ErrFileName = "extauth.err"
)

// Files holds the log and stderr files opened by OpenFiles.
type Files struct {
	Log *os.File
	Err *os.File
}

// OpenFiles opens (appending, creating if needed) the log and error files in
// dir. The directory itself is created when missing.
func OpenFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	logFile, err := openAppend(filepath.Join(dir, LogFileName))
	if err != nil {
		return nil, err
	}

	errFile, err := openAppend(filepath.Join(dir, ErrFileName))
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	return &Files{Log: logFile, Err: errFile}, nil
}

// RedirectStderr points os.Stderr and the runtime crash output at f.Err.
// Stdout is left alone: in serve mode it carries the protocol.
func (f *Files) RedirectStderr() error {
	os.Stderr = f.Err
	if err := debug.SetCrashOutput(f.Err, debug.CrashOptions{}); err != nil {
		return fmt.Errorf("set crash output: %w", err)
	}
	return nil
}

// Close closes both files.
func (f *Files) Close() error {
	errLog := f.Log.Close()
	errErr := f.Err.Close()
	if errLog != nil {
		return errLog
	}
	return errErr
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, nil
}
