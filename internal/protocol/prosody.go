package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/xcauth/internal/logging"
)

// ProsodyAdapter speaks Prosody's line protocol: one request per line,
// answered by "1\n" or "0\n".
type ProsodyAdapter struct {
	r      *bufio.Reader
	w      *bufio.Writer
	logger logging.Logger
	done   bool
}

// NewProsody returns a Prosody Adapter. Read returns as soon as one full
// line is available; it never waits for the input buffer to fill.
func NewProsody(r io.Reader, w io.Writer, logger logging.Logger) *ProsodyAdapter {
	return &ProsodyAdapter{r: bufio.NewReader(r), w: bufio.NewWriter(w), logger: logger}
}

func (a *ProsodyAdapter) Read() (Request, error) {
	if a.done {
		return Request{}, io.EOF
	}

	line, err := a.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			a.done = true
			return Request{}, fmt.Errorf("read line: %w", err)
		}
		// a final unterminated line is still a request
		a.done = true
		if line == "" {
			return Request{}, io.EOF
		}
	}

	line = strings.TrimSuffix(line, "\n")
	req := ParseRequest(line)
	a.logger.Debug(context.Background(), "from prosody", "operation", req.Op, "args", len(req.Args))
	return req, nil
}

func (a *ProsodyAdapter) Write(granted bool) error {
	answer := "0\n"
	if granted {
		answer = "1\n"
	}
	if _, err := a.w.WriteString(answer); err != nil {
		return err
	}
	return a.w.Flush()
}
