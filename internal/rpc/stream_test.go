package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamRoundTrip(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	w := NewWriter(&buf)

	id := NewNumberID(7)
	msg, err := NewRequest(id, "textDocument/hover", map[string]int{"line": 1})
	require.NoError(err)
	require.NoError(w.Write(msg))

	r := NewReader(&buf)
	got, err := r.Read()
	require.NoError(err)
	require.Equal(KindRequest, got.Kind())
	require.Equal("textDocument/hover", got.Method)
	require.True(got.ID.Equal(id))

	var params map[string]int
	ok, err := got.DecodeParams(&params)
	require.NoError(err)
	require.True(ok)
	require.Equal(1, params["line"])
}

func TestReaderMissingContentLength(t *testing.T) {
	require := require.New(t)
	r := NewReader(bytes.NewBufferString("Content-Type: application/vscode-jsonrpc\r\n\r\n{}"))
	_, err := r.Read()
	require.Error(err)
	var te *TransportError
	require.ErrorAs(err, &te)
}

func TestReaderEOFBetweenMessages(t *testing.T) {
	require := require.New(t)
	r := NewReader(bytes.NewBuffer(nil))
	_, err := r.Read()
	require.ErrorIs(err, io.EOF)
}

func TestReaderPartialBody(t *testing.T) {
	require := require.New(t)
	r := NewReader(bytes.NewBufferString("Content-Length: 10\r\n\r\n{\"a\":1}"))
	_, err := r.Read()
	require.Error(err)
	var te *TransportError
	require.ErrorAs(err, &te)
}

func TestNotificationHasNoID(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	msg, err := NewNotification("textDocument/didOpen", nil)
	require.NoError(err)
	require.NoError(w.Write(msg))

	var raw map[string]json.RawMessage
	require.NoError(json.Unmarshal(skipHeaders(t, buf.Bytes()), &raw))
	_, hasID := raw["id"]
	require.False(hasID)
}

func skipHeaders(t *testing.T, b []byte) []byte {
	t.Helper()
	idx := bytes.Index(b, []byte("\r\n\r\n"))
	require.True(t, idx >= 0)
	return b[idx+4:]
}
