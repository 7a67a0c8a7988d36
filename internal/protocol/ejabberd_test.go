package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(payload string) []byte {
	b := make([]byte, 2, 2+len(payload))
	binary.BigEndian.PutUint16(b, uint16(len(payload)))
	return append(b, payload...)
}

func TestEjabberd_ReadFrames(t *testing.T) {
	in := bytes.NewReader(append(frame("auth:alice:example.com:pa:ss"), frame("isuser:bob:example.com")...))
	a := NewEjabberd(in, io.Discard, logging.Nop())

	req, err := a.Read()
	require.NoError(t, err)
	assert.Equal(t, Request{Op: "auth", Args: []string{"alice", "example.com", "pa:ss"}}, req)

	req, err = a.Read()
	require.NoError(t, err)
	assert.Equal(t, Request{Op: "isuser", Args: []string{"bob", "example.com"}}, req)

	_, err = a.Read()
	assert.Equal(t, io.EOF, err)
	_, err = a.Read()
	assert.Equal(t, io.EOF, err, "end of stream is sticky")
}

func TestEjabberd_ZeroLengthIsLogicalEOF(t *testing.T) {
	in := bytes.NewReader(append([]byte{0, 0}, frame("isuser:bob:example.com")...))
	a := NewEjabberd(in, io.Discard, logging.Nop())

	_, err := a.Read()
	assert.Equal(t, io.EOF, err)

	_, err = a.Read()
	assert.Equal(t, io.EOF, err, "frames after the logical EOF are not read")
}

func TestEjabberd_ShortLengthFieldIsEOF(t *testing.T) {
	for _, in := range [][]byte{{}, {0x00}} {
		a := NewEjabberd(bytes.NewReader(in), io.Discard, logging.Nop())
		_, err := a.Read()
		assert.Equal(t, io.EOF, err, "input %v", in)
	}
}

func TestEjabberd_TruncatedFrameIsFatal(t *testing.T) {
	var out bytes.Buffer
	a := NewEjabberd(bytes.NewReader([]byte{0x00, 0x20, 'a', 'u', 't', 'h'}), &out, logging.Nop())

	_, err := a.Read()
	assert.ErrorIs(t, err, common.ErrShortFrame)
	assert.Zero(t, out.Len(), "no answer is written for a truncated frame")

	_, err = a.Read()
	assert.Equal(t, io.EOF, err)
}

func TestEjabberd_NegativeLength(t *testing.T) {
	a := NewEjabberd(bytes.NewReader([]byte{0xff, 0xff, 'x'}), io.Discard, logging.Nop())
	_, err := a.Read()
	assert.ErrorIs(t, err, common.ErrBadLength)
}

func TestEjabberd_Write(t *testing.T) {
	var out bytes.Buffer
	a := NewEjabberd(bytes.NewReader(nil), &out, logging.Nop())

	require.NoError(t, a.Write(true))
	require.NoError(t, a.Write(false))

	assert.Equal(t, []byte{0x00, 0x02, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00}, out.Bytes())
}

func TestEjabberd_WriteReadRoundTrip(t *testing.T) {
	for _, want := range []bool{true, false} {
		var out bytes.Buffer
		require.NoError(t, NewEjabberd(bytes.NewReader(nil), &out, logging.Nop()).Write(want))

		// an answer is itself a well-formed frame carrying one int16
		var size, value int16
		require.NoError(t, binary.Read(&out, binary.BigEndian, &size))
		require.NoError(t, binary.Read(&out, binary.BigEndian, &value))
		assert.Equal(t, int16(2), size)
		assert.Equal(t, want, value == 1)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestEjabberd_WriteError(t *testing.T) {
	a := NewEjabberd(bytes.NewReader(nil), failingWriter{}, logging.Nop())
	assert.ErrorIs(t, a.Write(true), io.ErrClosedPipe)
}
