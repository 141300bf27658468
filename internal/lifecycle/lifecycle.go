// Package lifecycle owns the server's initialize/initialized/shutdown/exit
// state machine, capability negotiation, and dynamic registration proxying.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"
	"github.com/saibing/served/internal/scheduler"
	"github.com/saibing/served/protocol"
)

// State is one of the five server lifecycle states.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	ShuttingDown
	Exited
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case ShuttingDown:
		return "shutting down"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// ExitCode is what the process should return after exit.
type ExitCode int

const (
	ExitClean ExitCode = 0
	ExitError ExitCode = 1
)

// Sender is the outbound surface Lifecycle needs for dynamic registration,
// routed through the same channel the router uses to talk to the client.
type Sender interface {
	Request(ctx context.Context, method string, params interface{}, result interface{}) error
}

// CapabilitySource reports which methods a server build has actually
// registered, so ServerCapabilities reflects reality instead of a fixed
// feature list.
type CapabilitySource interface {
	HasBinding(method string) bool
}

// Lifecycle tracks server state and registered dynamic capabilities.
type Lifecycle struct {
	log    *logging.Logger
	sched  *scheduler.Scheduler
	sender Sender
	caps   CapabilitySource

	mu            sync.Mutex
	state         State
	registrations map[string]string // registration id -> method
	nextRegID     int
}

// New returns a Lifecycle in the Uninitialized state.
func New(log *logging.Logger, sched *scheduler.Scheduler, sender Sender, caps CapabilitySource) *Lifecycle {
	return &Lifecycle{
		log:           log,
		sched:         sched,
		sender:        sender,
		caps:          caps,
		state:         Uninitialized,
		registrations: make(map[string]string),
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Gate rejects a request method that the current state does not allow, per
// the initialize/shutdown gating rule: only "initialize" is allowed before
// initialization completes, and only "exit" is allowed once shutdown has
// been requested.
func (l *Lifecycle) Gate(method string) *rpc.Error {
	l.mu.Lock()
	state := l.state
	l.mu.Unlock()

	switch state {
	case Uninitialized, Initializing:
		if method == "initialize" {
			return nil
		}
		return rpc.NewError(rpc.ServerNotInitialized, "server is not initialized")
	case ShuttingDown:
		if method == "exit" {
			return nil
		}
		return rpc.NewError(rpc.InvalidRequest, "server is shutting down")
	default:
		return nil
	}
}

// Initialize validates the current state and returns the negotiated
// capabilities; it moves the state to Initializing (Initialized completes
// the transition to Ready on the "initialized" notification).
func (l *Lifecycle) Initialize(params protocol.InitializeParams) (protocol.InitializeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Uninitialized {
		return protocol.InitializeResult{}, fmt.Errorf("lifecycle: initialize called in state %s", l.state)
	}
	l.state = Initializing

	return protocol.InitializeResult{
		Capabilities: l.negotiate(),
		ServerInfo:   &protocol.ServerInfo{Name: "served"},
	}, nil
}

// negotiate builds ServerCapabilities from the methods actually registered
// with the router. Must be called with l.mu held.
func (l *Lifecycle) negotiate() protocol.ServerCapabilities {
	syncKind := protocol.SyncFull
	if l.caps != nil && l.caps.HasBinding("textDocument/didChange") {
		syncKind = protocol.SyncIncremental
	}
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptionsOrKind{Kind: &syncKind},
	}
	if l.caps == nil {
		return caps
	}
	if l.caps.HasBinding("textDocument/completion") {
		caps.CompletionProvider = &protocol.CompletionOptions{TriggerCharacters: []string{"."}}
	}
	if l.caps.HasBinding("textDocument/hover") {
		caps.HoverProvider = true
	}
	if l.caps.HasBinding("textDocument/signatureHelp") {
		caps.SignatureHelpProvider = &protocol.SignatureHelpOptions{TriggerCharacters: []string{"(", ","}}
	}
	if l.caps.HasBinding("textDocument/definition") {
		caps.DefinitionProvider = true
	}
	if l.caps.HasBinding("textDocument/references") {
		caps.ReferencesProvider = true
	}
	if l.caps.HasBinding("textDocument/documentSymbol") {
		caps.DocumentSymbolProvider = true
	}
	if l.caps.HasBinding("workspace/symbol") {
		caps.WorkspaceSymbolProvider = true
	}
	if l.caps.HasBinding("textDocument/formatting") {
		caps.DocumentFormattingProvider = true
	}
	if l.caps.HasBinding("textDocument/codeAction") {
		caps.CodeActionProvider = true
	}
	return caps
}

// Initialized handles the "initialized" notification, completing the
// transition to Ready.
func (l *Lifecycle) Initialized() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Initializing {
		l.state = Ready
	}
}

// Shutdown handles the "shutdown" request: it drains in-flight tasks via
// the scheduler and moves to ShuttingDown. A repeated shutdown is logged,
// not treated as an error.
func (l *Lifecycle) Shutdown() {
	l.mu.Lock()
	if l.state == ShuttingDown || l.state == Exited {
		l.log.Warnf("lifecycle: shutdown requested again in state %s", l.state)
		l.mu.Unlock()
		return
	}
	l.state = ShuttingDown
	l.mu.Unlock()

	l.sched.Shutdown()
}

// Exit handles the "exit" notification and returns the process exit code:
// clean (0) from ShuttingDown, error (1) from any earlier state.
func (l *Lifecycle) Exit() ExitCode {
	l.mu.Lock()
	defer l.mu.Unlock()
	code := ExitError
	if l.state == ShuttingDown {
		code = ExitClean
	}
	l.state = Exited
	return code
}

// RegisterCapability proxies client/registerCapability for one dynamic
// registration and records its id so Unregister can be idempotent.
func (l *Lifecycle) RegisterCapability(ctx context.Context, method string, registerOptions interface{}) (string, error) {
	id := l.nextRegistrationID()
	reg := protocol.Registration{ID: id, Method: method, RegisterOptions: registerOptions}
	if err := l.sender.Request(ctx, "client/registerCapability", protocol.RegistrationParams{Registrations: []protocol.Registration{reg}}, nil); err != nil {
		return "", fmt.Errorf("lifecycle: register %s: %w", method, err)
	}

	l.mu.Lock()
	l.registrations[id] = method
	l.mu.Unlock()
	return id, nil
}

func (l *Lifecycle) nextRegistrationID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextRegID++
	return fmt.Sprintf("served-%d", l.nextRegID)
}

// UnregisterCapability proxies client/unregisterCapability. Unregistering
// an id that was never registered, or was already unregistered, is a no-op
// rather than an error.
func (l *Lifecycle) UnregisterCapability(ctx context.Context, id string) error {
	l.mu.Lock()
	method, ok := l.registrations[id]
	if ok {
		delete(l.registrations, id)
	}
	l.mu.Unlock()
	if !ok {
		return nil
	}

	unreg := protocol.Unregistration{ID: id, Method: method}
	if err := l.sender.Request(ctx, "client/unregisterCapability", protocol.UnregistrationParams{Unregisterations: []protocol.Unregistration{unreg}}, nil); err != nil {
		return fmt.Errorf("lifecycle: unregister %s: %w", method, err)
	}
	return nil
}
