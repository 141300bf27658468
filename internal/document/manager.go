package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/protocol"
	"github.com/sourcegraph/ctxvfs"
)

// Manager owns every open Document exclusively. Readers obtain a Snapshot,
// which stays valid for the duration of a handler task even as Manager
// publishes newer versions concurrently.
//
// The publish mechanism is a copy-on-write swap of an immutable map under
// atomic.Value: writers (open/change/close) serialize on mu and build a
// fresh map; readers (snapshot) load the map lock-free.
type Manager struct {
	mu                    sync.Mutex   // serializes writers only
	docs                  atomic.Value // map[protocol.DocumentURI]*Document
	log                   *logging.Logger
	normalizesLineEndings bool
}

// NewManager returns an empty Manager. normalizesLineEndings mirrors the
// initialize-time agreement over newline handling: when true, inserted text
// containing a different newline style is rewritten to the document's
// detected style; when false (the LSP default), it is inserted verbatim.
func NewManager(log *logging.Logger, normalizesLineEndings bool) *Manager {
	m := &Manager{log: log, normalizesLineEndings: normalizesLineEndings}
	m.docs.Store(map[protocol.DocumentURI]*Document{})
	return m
}

func (m *Manager) load() map[protocol.DocumentURI]*Document {
	return m.docs.Load().(map[protocol.DocumentURI]*Document)
}

// publish installs a new docs map under mu, copy-on-write over the current
// one. Callers must hold mu.
func (m *Manager) publish(mutate func(next map[protocol.DocumentURI]*Document)) {
	cur := m.load()
	next := make(map[protocol.DocumentURI]*Document, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	mutate(next)
	m.docs.Store(next)
}

// Open implements textDocument/didOpen.
func (m *Manager) Open(item protocol.TextDocumentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := newDocument(item.URI, item.LanguageID, item.Version, []byte(item.Text))
	m.publish(func(next map[protocol.DocumentURI]*Document) {
		next[item.URI] = doc
	})
}

// Change implements textDocument/didChange. The version in the change
// message must be strictly greater than the stored version; a stale change
// is dropped with a warning rather than erroring the request, and
// array-order changes see the cumulative effect of their predecessors in
// the same batch.
func (m *Manager) Change(id protocol.VersionedTextDocumentIdentifier, changes []protocol.TextDocumentContentChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.load()[id.URI]
	if !ok {
		return fmt.Errorf("document: change for unknown document %q", id.URI)
	}
	if id.Version <= cur.Version {
		m.log.Warnf("dropping stale change for %s: version %d <= current %d", id.URI, id.Version, cur.Version)
		return nil
	}

	text := cur.Text
	for _, change := range changes {
		var err error
		text, err = applyChange(cur, text, change, m.normalizesLineEndings)
		if err != nil {
			return fmt.Errorf("document: change %s: %w", id.URI, err)
		}
	}

	next := cur.withText(id.Version, text)
	m.publish(func(nextMap map[protocol.DocumentURI]*Document) {
		nextMap[id.URI] = next
	})
	return nil
}

// applyChange applies one content-change event to text (cur is used only for
// its already-detected Eol, never mutated).
func applyChange(cur *Document, text []byte, change protocol.TextDocumentContentChangeEvent, normalize bool) ([]byte, error) {
	newText := change.Text
	if normalize {
		newText = normalizeEol(newText, cur.Eol)
	}

	if change.Range == nil {
		// Full-document replace.
		return []byte(newText), nil
	}

	idx := lineStarts(text)
	start := offsetOf(text, idx, change.Range.Start)
	var end int
	if change.RangeLength > 0 {
		end = start + change.RangeLength
	} else {
		end = offsetOf(text, idx, change.Range.End)
	}
	if start < 0 || end > len(text) || end < start {
		return nil, fmt.Errorf("out-of-range change %+v", change.Range)
	}

	var buf bytes.Buffer
	buf.Grow(start + len(newText) + len(text) - end)
	buf.Write(text[:start])
	buf.WriteString(newText)
	buf.Write(text[end:])
	return buf.Bytes(), nil
}

func normalizeEol(text string, target EolKind) string {
	normalized := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text)
	if target == EolLF {
		return normalized
	}
	return strings.ReplaceAll(normalized, "\n", target.String())
}

// Save implements textDocument/didSave. Per LSP, an optional full text may
// be included; served treats it as an authoritative full-sync change at the
// document's current version (didSave never carries its own version).
func (m *Manager) Save(id protocol.TextDocumentIdentifier, text *string) error {
	if text == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.load()[id.URI]
	if !ok {
		return fmt.Errorf("document: save for unknown document %q", id.URI)
	}
	next := cur.withText(cur.Version, []byte(*text))
	m.publish(func(nextMap map[protocol.DocumentURI]*Document) {
		nextMap[id.URI] = next
	})
	return nil
}

// Close implements textDocument/didClose.
func (m *Manager) Close(id protocol.TextDocumentIdentifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish(func(next map[protocol.DocumentURI]*Document) {
		delete(next, id.URI)
	})
}

// Snapshot returns an immutable view of uri's current Document, or false if
// it is not open. The returned Snapshot remains valid for as long as the
// caller holds it, even across later Change calls: writers publish a new
// Document value and snapshots taken earlier remain valid for their
// duration.
func (m *Manager) Snapshot(uri protocol.DocumentURI) (Snapshot, bool) {
	doc, ok := m.load()[uri]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{doc: doc}, true
}

// URIs returns every currently open document URI, sorted for determinism.
func (m *Manager) URIs() []protocol.DocumentURI {
	cur := m.load()
	uris := make([]protocol.DocumentURI, 0, len(cur))
	for u := range cur {
		uris = append(uris, u)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}

// FS exposes the open-document overlay as a ctxvfs.FileSystem, letting
// external handler modules read live buffer content the same way they would
// read from disk: a read-only view backed by the same copy-on-write docs
// map, rather than a writable ctxvfs.NameSpace.
type FS struct {
	m *Manager
}

// FS returns the ctxvfs.FileSystem view of m's open documents.
func (m *Manager) FS() ctxvfs.FileSystem { return FS{m: m} }

func (FS) String() string { return "served-document-overlay" }

func (f FS) Open(ctx context.Context, path string) (ctxvfs.ReadSeekCloser, error) {
	doc, ok := f.m.Snapshot(protocol.DocumentURI(path))
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return nopCloser{bytes.NewReader(doc.Text())}, nil
}

func (f FS) Stat(ctx context.Context, path string) (os.FileInfo, error) {
	return nil, fmt.Errorf("document overlay: Stat not supported for %q", path)
}

func (f FS) Lstat(ctx context.Context, path string) (os.FileInfo, error) {
	return f.Stat(ctx, path)
}

func (f FS) ReadDir(ctx context.Context, path string) ([]os.FileInfo, error) {
	return nil, fmt.Errorf("document overlay: ReadDir not supported")
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
