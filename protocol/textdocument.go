package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/saibing/served/internal/jsonx"
)

// TextDocumentSyncOptions is the long-form of ServerCapabilities.textDocumentSync.
type TextDocumentSyncOptions struct {
	OpenClose bool                  `json:"openClose,omitempty"`
	Change    *TextDocumentSyncKind `json:"change,omitempty"`
}

// TextDocumentSyncOptionsOrKind represents the sum type
// `TextDocumentSyncKind | TextDocumentSyncOptions`. Exactly one of Kind or
// Options is set.
type TextDocumentSyncOptionsOrKind struct {
	Kind    *TextDocumentSyncKind
	Options *TextDocumentSyncOptions
}

// MarshalJSON emits the bare kind if set, else the options object.
func (s TextDocumentSyncOptionsOrKind) MarshalJSON() ([]byte, error) {
	if s.Kind != nil {
		return json.Marshal(*s.Kind)
	}
	if s.Options != nil {
		return json.Marshal(s.Options)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON decodes either a bare number or an options object, by
// inspecting the JSON kind rather than required-key presence (there is no
// object/array ambiguity to resolve here, just object-vs-scalar).
func (s *TextDocumentSyncOptionsOrKind) UnmarshalJSON(data []byte) error {
	v, err := jsonx.Parse(data)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case jsonx.KindNumber:
		var k TextDocumentSyncKind
		if err := json.Unmarshal(data, &k); err != nil {
			return err
		}
		s.Kind = &k
		return nil
	case jsonx.KindObject:
		var o TextDocumentSyncOptions
		if err := json.Unmarshal(data, &o); err != nil {
			return err
		}
		s.Options = &o
		return nil
	default:
		return fmt.Errorf("protocol: textDocumentSync must be a number or object")
	}
}

// TextDocumentContentChangeEvent is one entry of didChange's contentChanges.
// A nil Range means "replace the whole document" (full sync).
type TextDocumentContentChangeEvent struct {
	Range       *Range `json:"range,omitempty"`
	RangeLength int    `json:"rangeLength,omitempty"`
	Text        string `json:"text"`
}

// DidOpenTextDocumentParams is textDocument/didOpen's payload.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeTextDocumentParams is textDocument/didChange's payload.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier   `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent  `json:"contentChanges"`
}

// DidCloseTextDocumentParams is textDocument/didClose's payload.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DidSaveTextDocumentParams is textDocument/didSave's payload.
type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Text         *string                `json:"text,omitempty"`
}

// Diagnostic is one entry of textDocument/publishDiagnostics.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     interface{}        `json:"code,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// PublishDiagnosticsParams is the textDocument/publishDiagnostics notification.
type PublishDiagnosticsParams struct {
	URI         DocumentURI  `json:"uri"`
	Version     *int32       `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// MarkupContent is a string rendered as plaintext or markdown.
type MarkupContent struct {
	Kind  MarkupKind `json:"kind"`
	Value string     `json:"value"`
}

// MarkedString is the legacy hover content shape: either a bare string or
// {language, value}.
type MarkedString struct {
	Value    string
	Language string
}

// MarshalJSON emits a bare string when Language is empty, else the
// {language,value} object form.
func (m MarkedString) MarshalJSON() ([]byte, error) {
	if m.Language == "" {
		return json.Marshal(m.Value)
	}
	return json.Marshal(struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}{m.Language, m.Value})
}

// UnmarshalJSON accepts either shape.
func (m *MarkedString) UnmarshalJSON(data []byte) error {
	v, err := jsonx.Parse(data)
	if err != nil {
		return err
	}
	if v.Kind() == jsonx.KindString {
		s, err := v.String()
		if err != nil {
			return err
		}
		*m = MarkedString{Value: s}
		return nil
	}
	var aux struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = MarkedString{Value: aux.Value, Language: aux.Language}
	return nil
}

// HoverContents is the sum type `MarkedString | MarkedString[] | MarkupContent`.
type HoverContents struct {
	MarkupContent *MarkupContent
	MarkedStrings []MarkedString
}

// MarshalJSON emits whichever arm is populated.
func (h HoverContents) MarshalJSON() ([]byte, error) {
	if h.MarkupContent != nil {
		return json.Marshal(h.MarkupContent)
	}
	if len(h.MarkedStrings) == 1 {
		return json.Marshal(h.MarkedStrings[0])
	}
	return json.Marshal(h.MarkedStrings)
}

// UnmarshalJSON discriminates by JSON kind: an object with a "kind" field is
// MarkupContent, an array is MarkedString[], anything else is a single
// MarkedString.
func (h *HoverContents) UnmarshalJSON(data []byte) error {
	v, err := jsonx.Parse(data)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case jsonx.KindArray:
		var arr []MarkedString
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*h = HoverContents{MarkedStrings: arr}
		return nil
	case jsonx.KindObject:
		obj, err := v.AsObject()
		if err != nil {
			return err
		}
		if _, ok := obj.Get("kind"); ok {
			var mc MarkupContent
			if err := json.Unmarshal(data, &mc); err != nil {
				return err
			}
			*h = HoverContents{MarkupContent: &mc}
			return nil
		}
		var ms MarkedString
		if err := json.Unmarshal(data, &ms); err != nil {
			return err
		}
		*h = HoverContents{MarkedStrings: []MarkedString{ms}}
		return nil
	default:
		var ms MarkedString
		if err := json.Unmarshal(data, &ms); err != nil {
			return err
		}
		*h = HoverContents{MarkedStrings: []MarkedString{ms}}
		return nil
	}
}

// Hover is the result of textDocument/hover.
type Hover struct {
	Contents HoverContents `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// CompletionParams is textDocument/completion's request.
type CompletionParams struct {
	TextDocumentPositionParams
	PartialResultParams
}

// CompletionItem is one entry of a completion list.
type CompletionItem struct {
	Label         string             `json:"label"`
	Kind          CompletionItemKind `json:"kind,omitempty"`
	Detail        string             `json:"detail,omitempty"`
	Documentation string             `json:"documentation,omitempty"`
	InsertText    string             `json:"insertText,omitempty"`
}

// CompletionList is the non-streamed result of textDocument/completion.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// SignatureHelpParams is textDocument/signatureHelp's request.
type SignatureHelpParams struct {
	TextDocumentPositionParams
}

// ParameterInformation describes one parameter of a SignatureInformation.
type ParameterInformation struct {
	Label string `json:"label"`
}

// SignatureInformation describes one overload.
type SignatureInformation struct {
	Label         string                 `json:"label"`
	Documentation string                 `json:"documentation,omitempty"`
	Parameters    []ParameterInformation `json:"parameters,omitempty"`
}

// SignatureHelp is the result of textDocument/signatureHelp.
type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature int                    `json:"activeSignature,omitempty"`
	ActiveParameter int                    `json:"activeParameter,omitempty"`
}

// DocumentSymbolParams is textDocument/documentSymbol's request.
type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	PartialResultParams
}

// SymbolInformation is one entry of a documentSymbol/workspaceSymbol reply.
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// FormattingOptions is the options record of a formatting request.
type FormattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

// DocumentFormattingParams is textDocument/formatting's request.
type DocumentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Options      FormattingOptions      `json:"options"`
}

// DocumentRangeFormattingParams is textDocument/rangeFormatting's request.
type DocumentRangeFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Options      FormattingOptions      `json:"options"`
}

// ReferenceContext controls whether the declaration itself is included.
type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// ReferenceParams is textDocument/references's request.
type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
	PartialResultParams
}
