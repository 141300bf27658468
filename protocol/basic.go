// Package protocol is the LSP v3.16 message schema: tagged record/variant
// types for every request, notification, and capability record the runtime
// core needs to route, decode, and assemble. It intentionally excludes any
// D-specific result content — those are produced by external handler modules
// and simply returned as the interface{} payload of a result or the
// json.RawMessage of a variant arm.
package protocol

import "github.com/saibing/served/internal/jsonx"

// DocumentURI is a URI identifying a text document, always using the
// "file" scheme in served's supported configurations.
type DocumentURI string

// URI is a generic URI, used for workspace folders and similar.
type URI string

// Position is a zero-based line/character pair. Character counts UTF-16
// code units within the line — never bytes, never grapheme clusters.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end Position pair; End is exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a Range within a specific document.
type Location struct {
	URI   DocumentURI `json:"uri"`
	Range Range       `json:"range"`
}

// TextDocumentIdentifier identifies a document by URI alone.
type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

// VersionedTextDocumentIdentifier additionally pins a version.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int32 `json:"version"`
}

// TextDocumentItem is the full payload of an opened document.
type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int32       `json:"version"`
	Text       string      `json:"text"`
}

// TextDocumentPositionParams is the common request shape of "give me
// something about the symbol at this position".
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// Command represents a reference to a command recognized by the client.
type Command struct {
	Title     string        `json:"title"`
	Command   string        `json:"command"`
	Arguments []interface{} `json:"arguments,omitempty"`
}

// TextEdit replaces Range's text with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// InsertReplaceEdit is TextEdit's insert/replace variant arm, distinguished
// from TextEdit by struct-variant dispatch on required-key presence: both
// "insert" and "replace" present selects this arm.
type InsertReplaceEdit struct {
	NewText string `json:"newText"`
	Insert  Range  `json:"insert"`
	Replace Range  `json:"replace"`
}

// TextEditArms is the VariantArm set for decoding a TextEdit|InsertReplaceEdit
// sum type; consumers pass this to jsonx.DecodeVariant.
var TextEditArms = []jsonx.VariantArm{
	{
		Name:         "InsertReplaceEdit",
		RequiredKeys: []string{"newText", "insert", "replace"},
		New:          func() interface{} { return new(InsertReplaceEdit) },
	},
	{
		Name:         "TextEdit",
		RequiredKeys: []string{"newText", "range"},
		New:          func() interface{} { return new(TextEdit) },
	},
}

// WorkspaceEdit describes changes to multiple documents/resources.
type WorkspaceEdit struct {
	Changes map[DocumentURI][]TextEdit `json:"changes,omitempty"`
}

// CodeActionKind is a hierarchical identifier like "refactor.extract.function".
type CodeActionKind string

// CodeAction represents a change that can be performed in code.
type CodeAction struct {
	Title       string         `json:"title"`
	Kind        CodeActionKind `json:"kind,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	Edit        *WorkspaceEdit `json:"edit,omitempty"`
	Command     *Command       `json:"command,omitempty"`
}
