package protocol

// MessageType classifies window/showMessage and window/logMessage severity.
type MessageType int

const (
	MessageTypeError   MessageType = 1
	MessageTypeWarning MessageType = 2
	MessageTypeInfo    MessageType = 3
	MessageTypeLog     MessageType = 4
)

// DiagnosticSeverity classifies a Diagnostic.
type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

// TextDocumentSyncKind controls how document changes are sent to the server.
type TextDocumentSyncKind int

const (
	SyncNone        TextDocumentSyncKind = 0
	SyncFull        TextDocumentSyncKind = 1
	SyncIncremental TextDocumentSyncKind = 2
)

// CompletionItemKind enumerates the icon/category for a completion item.
type CompletionItemKind int

const (
	CIKText          CompletionItemKind = 1
	CIKMethod        CompletionItemKind = 2
	CIKFunction      CompletionItemKind = 3
	CIKConstructor   CompletionItemKind = 4
	CIKField         CompletionItemKind = 5
	CIKVariable      CompletionItemKind = 6
	CIKClass         CompletionItemKind = 7
	CIKInterface     CompletionItemKind = 8
	CIKModule        CompletionItemKind = 9
	CIKProperty      CompletionItemKind = 10
	CIKUnit          CompletionItemKind = 11
	CIKValue         CompletionItemKind = 12
	CIKEnum          CompletionItemKind = 13
	CIKKeyword       CompletionItemKind = 14
	CIKSnippet       CompletionItemKind = 15
	CIKColor         CompletionItemKind = 16
	CIKFile          CompletionItemKind = 17
	CIKReference     CompletionItemKind = 18
	CIKFolder        CompletionItemKind = 19
	CIKEnumMember    CompletionItemKind = 20
	CIKConstant      CompletionItemKind = 21
	CIKStruct        CompletionItemKind = 22
	CIKEvent         CompletionItemKind = 23
	CIKOperator      CompletionItemKind = 24
	CIKTypeParameter CompletionItemKind = 25
)

// SymbolKind enumerates the kind of a document/workspace symbol.
type SymbolKind int

const (
	SKFile          SymbolKind = 1
	SKModule        SymbolKind = 2
	SKNamespace     SymbolKind = 3
	SKPackage       SymbolKind = 4
	SKClass         SymbolKind = 5
	SKMethod        SymbolKind = 6
	SKProperty      SymbolKind = 7
	SKField         SymbolKind = 8
	SKConstructor   SymbolKind = 9
	SKEnum          SymbolKind = 10
	SKInterface     SymbolKind = 11
	SKFunction      SymbolKind = 12
	SKVariable      SymbolKind = 13
	SKConstant      SymbolKind = 14
	SKString        SymbolKind = 15
	SKNumber        SymbolKind = 16
	SKBoolean       SymbolKind = 17
	SKArray         SymbolKind = 18
	SKObject        SymbolKind = 19
	SKKey           SymbolKind = 20
	SKNull          SymbolKind = 21
	SKEnumMember    SymbolKind = 22
	SKStruct        SymbolKind = 23
	SKEvent         SymbolKind = 24
	SKOperator      SymbolKind = 25
	SKTypeParameter SymbolKind = 26
)

// MarkupKind is the format of a MarkupContent string.
type MarkupKind string

const (
	MarkupPlainText MarkupKind = "plaintext"
	MarkupMarkdown  MarkupKind = "markdown"
)
