package protocol

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
)

// EjabberdAdapter speaks the ejabberd extauth protocol: every request is a
// big-endian int16 length followed by that many bytes; every answer is the
// length 2 followed by a big-endian int16 0 or 1.
type EjabberdAdapter struct {
	r      io.Reader
	w      *bufio.Writer
	logger logging.Logger
	done   bool
}

// NewEjabberd returns an ejabberd Adapter.
func NewEjabberd(r io.Reader, w io.Writer, logger logging.Logger) *EjabberdAdapter {
	return &EjabberdAdapter{r: r, w: bufio.NewWriter(w), logger: logger}
}

func (a *EjabberdAdapter) Read() (Request, error) {
	if a.done {
		return Request{}, io.EOF
	}

	var size int16
	if err := binary.Read(a.r, binary.BigEndian, &size); err != nil {
		a.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Request{}, io.EOF
		}
		return Request{}, fmt.Errorf("read frame length: %w", err)
	}

	if size == 0 {
		a.done = true
		a.logger.Info(context.Background(), "command length 0, treating as logical EOF")
		return Request{}, io.EOF
	}
	if size < 0 {
		a.done = true
		return Request{}, fmt.Errorf("%w: %d", common.ErrBadLength, size)
	}

	payload := make([]byte, size)
	if n, err := io.ReadFull(a.r, payload); err != nil {
		a.done = true
		a.logger.Warn(context.Background(), "premature EOF while reading cmd", "got", n, "want", size)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Request{}, fmt.Errorf("%w: %d != %d", common.ErrShortFrame, n, size)
		}
		return Request{}, fmt.Errorf("read frame: %w", err)
	}

	req := ParseRequest(string(payload))
	a.logger.Debug(context.Background(), "from ejabberd", "operation", req.Op, "args", len(req.Args))
	return req, nil
}

func (a *EjabberdAdapter) Write(granted bool) error {
	var answer int16
	if granted {
		answer = 1
	}
	if err := binary.Write(a.w, binary.BigEndian, [2]int16{2, answer}); err != nil {
		return err
	}
	return a.w.Flush()
}
