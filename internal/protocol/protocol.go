// Package protocol implements the two external-authentication wire
// protocols of XMPP servers: ejabberd's length-prefixed binary frames and
// Prosody's newline-delimited text lines.
//
// Both carry requests of the form "op:arg1[:arg2[:arg3]]". The line is
// split at most three times so that passwords may contain ':'.
package protocol

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
)

// ServerType selects the wire protocol.
type ServerType string

const (
	Ejabberd ServerType = "ejabberd"
	Prosody  ServerType = "prosody"
)

// ParseServerType validates s as a ServerType.
func ParseServerType(s string) (ServerType, error) {
	switch t := ServerType(s); t {
	case Ejabberd, Prosody:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (want %s or %s)", common.ErrUnknownServerType, s, Ejabberd, Prosody)
	}
}

// Request is one decoded query.
type Request struct {
	Op   string
	Args []string
}

// ParseRequest splits a raw payload into operation and arguments.
func ParseRequest(payload string) Request {
	fields := strings.SplitN(payload, ":", 4)
	return Request{Op: fields[0], Args: fields[1:]}
}

// Adapter reads requests from and writes answers to one XMPP server
// session.
//
// Read returns io.EOF once the stream has ended, and keeps returning it.
// Any other error is fatal to the session and no answer is owed for it.
type Adapter interface {
	Read() (Request, error)
	Write(granted bool) error
}

// New returns the Adapter for t over r and w.
func New(t ServerType, r io.Reader, w io.Writer, logger logging.Logger) (Adapter, error) {
	switch t {
	case Ejabberd:
		return NewEjabberd(r, w, logger), nil
	case Prosody:
		return NewProsody(r, w, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownServerType, string(t))
	}
}

// Requests returns the requests of a as a lazy sequence. The sequence ends
// silently at io.EOF; a framing error is yielded once, then the sequence
// ends.
func Requests(a Adapter) iter.Seq2[Request, error] {
	return func(yield func(Request, error) bool) {
		for {
			req, err := a.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Request{}, err)
				return
			}
			if !yield(req, nil) {
				return
			}
		}
	}
}
