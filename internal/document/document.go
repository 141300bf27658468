// Package document implements the Document Manager: the authoritative text
// of every open file, incremental and full change application, UTF-16<->UTF-8
// position conversion, and copy-on-write snapshots safe to read from
// concurrently scheduled handler tasks.
package document

import (
	"github.com/saibing/served/protocol"
)

// EolKind is the newline style detected on open and preserved thereafter.
type EolKind int

const (
	EolLF EolKind = iota
	EolCR
	EolCRLF
)

// String returns the literal newline sequence for the kind.
func (k EolKind) String() string {
	switch k {
	case EolCR:
		return "\r"
	case EolCRLF:
		return "\r\n"
	default:
		return "\n"
	}
}

// detectEol scans text for the first line terminator and classifies it.
// LF is the default when no terminator is found, matching most editors'
// behavior for single-line buffers.
func detectEol(text []byte) EolKind {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			if i > 0 && text[i-1] == '\r' {
				return EolCRLF
			}
			return EolLF
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return EolCRLF
			}
			return EolCR
		}
	}
	return EolLF
}

// lineStarts returns the byte offset of the start of every line in text,
// always beginning with 0. A line break is any of \n, \r\n, or a lone \r —
// this is deliberately more permissive than the document's own detected
// EolKind, since pasted or received text may mix styles before
// normalization runs.
func lineStarts(text []byte) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Document is the authoritative text of one open file. lineIndex is always
// consistent with text: every mutation in Manager replaces both atomically
// by publishing a new *Document value, never mutating one in place.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int32
	Text       []byte
	lineIndex  []int
	Eol        EolKind
}

// newDocument builds a Document from scratch, computing its line index and
// detecting its EOL style.
func newDocument(uri protocol.DocumentURI, languageID string, version int32, text []byte) *Document {
	return &Document{
		URI:        uri,
		LanguageID: languageID,
		Version:    version,
		Text:       text,
		lineIndex:  lineStarts(text),
		Eol:        detectEol(text),
	}
}

// withText returns a new Document sharing uri/languageId/eol but with fresh
// text, version, and recomputed line index. The old Document (and anyone
// holding a Snapshot of it) is left untouched.
func (d *Document) withText(version int32, text []byte) *Document {
	return &Document{
		URI:        d.URI,
		LanguageID: d.LanguageID,
		Version:    version,
		Text:       text,
		lineIndex:  lineStarts(text),
		Eol:        d.Eol,
	}
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int { return len(d.lineIndex) }

// Snapshot is an immutable view of a Document at a specific version. It is
// just a *Document under the hood (Documents are already never mutated in
// place — see withText above) — the distinct type documents the read-only
// contract handler tasks rely on.
type Snapshot struct {
	doc *Document
}

// URI, Version, Text, Eol, LineCount proxy through to the underlying Document.
func (s Snapshot) URI() protocol.DocumentURI { return s.doc.URI }
func (s Snapshot) Version() int32            { return s.doc.Version }
func (s Snapshot) Text() []byte              { return s.doc.Text }
func (s Snapshot) Eol() EolKind              { return s.doc.Eol }
func (s Snapshot) LineCount() int            { return s.doc.LineCount() }
