package document

import (
	"context"
	"testing"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/protocol"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(logging.Default("[test] "), false)
}

func TestOpenThenSnapshotSeesText(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "void main() {}"})

	s, ok := m.Snapshot("file:///a.d")
	require.True(ok)
	require.Equal("void main() {}", string(s.Text()))
	require.EqualValues(1, s.Version())
}

func TestIncrementalChangeAppliesRange(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "int x = 1;\n"})

	err := m.Change(
		protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///a.d"}, Version: 2},
		[]protocol.TextDocumentContentChangeEvent{
			{Range: &protocol.Range{Start: protocol.Position{Line: 0, Character: 8}, End: protocol.Position{Line: 0, Character: 9}}, Text: "42"},
		},
	)
	require.NoError(err)

	s, ok := m.Snapshot("file:///a.d")
	require.True(ok)
	require.Equal("int x = 42;\n", string(s.Text()))
	require.EqualValues(2, s.Version())
}

func TestFullSyncReplacesWholeDocument(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "old"})

	err := m.Change(
		protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///a.d"}, Version: 2},
		[]protocol.TextDocumentContentChangeEvent{{Text: "new"}},
	)
	require.NoError(err)

	s, _ := m.Snapshot("file:///a.d")
	require.Equal("new", string(s.Text()))
}

func TestStaleChangeIsDroppedNotErrored(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 5, Text: "text"})

	err := m.Change(
		protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///a.d"}, Version: 3},
		[]protocol.TextDocumentContentChangeEvent{{Text: "clobbered"}},
	)
	require.NoError(err)

	s, _ := m.Snapshot("file:///a.d")
	require.Equal("text", string(s.Text()))
	require.EqualValues(5, s.Version())
}

func TestSnapshotOutlivesLaterChange(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "v1"})

	old, ok := m.Snapshot("file:///a.d")
	require.True(ok)

	require.NoError(m.Change(
		protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///a.d"}, Version: 2},
		[]protocol.TextDocumentContentChangeEvent{{Text: "v2"}},
	))

	require.Equal("v1", string(old.Text()))

	cur, _ := m.Snapshot("file:///a.d")
	require.Equal("v2", string(cur.Text()))
}

func TestCloseRemovesDocument(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "x"})
	m.Close(protocol.TextDocumentIdentifier{URI: "file:///a.d"})

	_, ok := m.Snapshot("file:///a.d")
	require.False(ok)
}

func TestSaveWithFullTextOverwrites(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "stale"})

	text := "fresh from disk"
	require.NoError(m.Save(protocol.TextDocumentIdentifier{URI: "file:///a.d"}, &text))

	s, _ := m.Snapshot("file:///a.d")
	require.Equal("fresh from disk", string(s.Text()))
}

func TestFSServesOpenDocumentContent(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", LanguageID: "d", Version: 1, Text: "module a;\n"})

	f, err := m.FS().Open(context.Background(), "file:///a.d")
	require.NoError(err)
	defer f.Close()

	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	require.Equal("module a;\n", string(buf[:n]))
}

func TestURIsSortedAndComplete(t *testing.T) {
	require := require.New(t)
	m := newTestManager()
	m.Open(protocol.TextDocumentItem{URI: "file:///b.d", Version: 1})
	m.Open(protocol.TextDocumentItem{URI: "file:///a.d", Version: 1})

	require.Equal([]protocol.DocumentURI{"file:///a.d", "file:///b.d"}, m.URIs())
}
