package protocol

// CompletionItemKindCapabilities lists the CompletionItemKind values the
// client understands, used to gate which kinds the server may return.
type CompletionItemKindCapabilities struct {
	ValueSet []CompletionItemKind `json:"valueSet,omitempty"`
}

type CompletionItemCapabilities struct {
	SnippetSupport bool `json:"snippetSupport,omitempty"`
}

type CompletionClientCapabilities struct {
	CompletionItem     CompletionItemCapabilities     `json:"completionItem,omitempty"`
	CompletionItemKind CompletionItemKindCapabilities `json:"completionItemKind,omitempty"`
}

type TextDocumentClientCapabilities struct {
	Completion CompletionClientCapabilities `json:"completion,omitempty"`
}

type WorkspaceClientCapabilities struct {
	ApplyEdit              bool `json:"applyEdit,omitempty"`
	WorkspaceFolders       bool `json:"workspaceFolders,omitempty"`
	Configuration          bool `json:"configuration,omitempty"`
	DidChangeConfiguration struct {
		DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	} `json:"didChangeConfiguration,omitempty"`
}

type WindowClientCapabilities struct {
	WorkDoneProgress bool `json:"workDoneProgress,omitempty"`
}

// ClientCapabilities is the client's capabilities record sent in initialize.
type ClientCapabilities struct {
	Workspace    WorkspaceClientCapabilities    `json:"workspace,omitempty"`
	TextDocument TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Window       WindowClientCapabilities       `json:"window,omitempty"`
}

// CompletionOptions is ServerCapabilities.completionProvider.
type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters,omitempty"`
}

// SignatureHelpOptions is ServerCapabilities.signatureHelpProvider.
type SignatureHelpOptions struct {
	TriggerCharacters []string `json:"triggerCharacters,omitempty"`
}

// WorkDoneProgressOptions is embedded in provider options that can report progress.
type WorkDoneProgressOptions struct {
	WorkDoneProgress bool `json:"workDoneProgress,omitempty"`
}

// ServerCapabilities reflects the actually-registered methods: e.g.
// CompletionProvider is present iff a completion handler was registered
// with the router.
type ServerCapabilities struct {
	TextDocumentSync           *TextDocumentSyncOptionsOrKind `json:"textDocumentSync,omitempty"`
	CompletionProvider         *CompletionOptions             `json:"completionProvider,omitempty"`
	HoverProvider              bool                            `json:"hoverProvider,omitempty"`
	SignatureHelpProvider      *SignatureHelpOptions           `json:"signatureHelpProvider,omitempty"`
	DefinitionProvider         bool                            `json:"definitionProvider,omitempty"`
	ReferencesProvider         bool                            `json:"referencesProvider,omitempty"`
	DocumentSymbolProvider     bool                            `json:"documentSymbolProvider,omitempty"`
	WorkspaceSymbolProvider    bool                            `json:"workspaceSymbolProvider,omitempty"`
	DocumentFormattingProvider bool                            `json:"documentFormattingProvider,omitempty"`
	CodeActionProvider         bool                            `json:"codeActionProvider,omitempty"`
}

// InitializationOptions carries served-specific startup configuration.
// Pointer fields distinguish "not supplied" from "supplied as zero value",
// matching the Config/Apply pattern used to build the runtime config.
type InitializationOptions struct {
	D        *DOptions        `json:"d,omitempty"`
	Dfmt     *DfmtOptions     `json:"dfmt,omitempty"`
	Dscanner *DscannerOptions `json:"dscanner,omitempty"`
	Editor   *EditorOptions   `json:"editor,omitempty"`
	Git      *GitOptions      `json:"git,omitempty"`
}

type DOptions struct {
	DubPath            *string `json:"dubPath,omitempty"`
	DcdPath            *string `json:"dcdClientPath,omitempty"`
	DmdPath            *string `json:"dmdPath,omitempty"`
	EnableLinting      *bool   `json:"enableLinting,omitempty"`
	EnableFormatting   *bool   `json:"enableFormatting,omitempty"`
	EnableAutoComplete *bool   `json:"enableAutoComplete,omitempty"`
	CompletionNoDupes  *bool   `json:"completionNoDupes,omitempty"`
}

type DfmtOptions struct {
	BraceStyle *string `json:"braceStyle,omitempty"`
	IndentSize *int    `json:"indentSize,omitempty"`
	SoftMax    *int    `json:"softMax,omitempty"`
}

type DscannerOptions struct {
	IniPath *string `json:"iniPath,omitempty"`
}

type EditorOptions struct {
	RulerColumns []int `json:"rulerColumns,omitempty"`
	TabSize      *int  `json:"tabSize,omitempty"`
}

type GitOptions struct {
	Path *string `json:"path,omitempty"`
}

// InitializeParams is the initialize request's payload.
type InitializeParams struct {
	ProcessID             *int                `json:"processId"`
	RootURI               DocumentURI         `json:"rootUri,omitempty"`
	RootPath              string              `json:"rootPath,omitempty"`
	Capabilities          ClientCapabilities  `json:"capabilities"`
	InitializationOptions *InitializationOptions `json:"initializationOptions,omitempty"`
	WorkDoneProgressParams
}

// ServerInfo is InitializeResult.serverInfo.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeResult is the initialize request's result.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`
}

// Registration is one entry of client/registerCapability.
type Registration struct {
	ID              string      `json:"id"`
	Method          string      `json:"method"`
	RegisterOptions interface{} `json:"registerOptions,omitempty"`
}

// RegistrationParams is client/registerCapability's payload.
type RegistrationParams struct {
	Registrations []Registration `json:"registrations"`
}

// Unregistration is one entry of client/unregisterCapability.
type Unregistration struct {
	ID     string `json:"id"`
	Method string `json:"method"`
}

// UnregistrationParams is client/unregisterCapability's payload.
type UnregistrationParams struct {
	Unregisterations []Unregistration `json:"unregisterations"`
}

// ShowMessageParams is window/showMessage's payload.
type ShowMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// LogMessageParams is window/logMessage's payload.
type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ConfigurationItem is one entry of workspace/configuration's request.
type ConfigurationItem struct {
	ScopeURI *DocumentURI `json:"scopeUri,omitempty"`
	Section  string       `json:"section,omitempty"`
}

// ConfigurationParams is workspace/configuration's payload.
type ConfigurationParams struct {
	Items []ConfigurationItem `json:"items"`
}

// DidChangeConfigurationParams is workspace/didChangeConfiguration's payload.
type DidChangeConfigurationParams struct {
	Settings InitializationOptions `json:"settings"`
}

// WorkspaceSymbolParams is workspace/symbol's request.
type WorkspaceSymbolParams struct {
	Query string `json:"query"`
	PartialResultParams
}
