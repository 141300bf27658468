// Package progress tracks work-done and partial-result progress tokens: the
// window/workDoneProgress/create handshake, $/progress streaming, and the
// token-to-binding map a router consults when assembling a multi-binding
// reply that streams instead of buffering.
package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/saibing/served/internal/rpc"
	"github.com/saibing/served/protocol"
)

// Sender is the minimal outbound surface a Manager needs: notifications for
// $/progress streaming, and requests for the create handshake. The server
// wiring package supplies an implementation backed by an rpc.Stream.
type Sender interface {
	Notify(method string, params interface{}) error
	Request(ctx context.Context, method string, params interface{}, result interface{}) error
}

// NewToken mints a server-generated token for a handler that wants to
// stream progress but received none from the client.
func NewToken() protocol.ProgressToken {
	return protocol.NewProgressToken(uuid.NewString())
}

type workDoneEntry struct {
	// ephemeral tokens were attached from a request's workDoneToken field
	// directly and are released when that request completes; tokens
	// established via an explicit create handshake persist until End or
	// Cancel.
	ephemeral bool
}

// Manager owns every active progress token.
type Manager struct {
	sender Sender

	mu       sync.Mutex
	workDone map[string]workDoneEntry
}

// New returns a Manager that sends through sender.
func New(sender Sender) *Manager {
	return &Manager{
		sender:   sender,
		workDone: make(map[string]workDoneEntry),
	}
}

// Create performs the window/workDoneProgress/create handshake for a
// server-minted token and marks it non-ephemeral: it survives past whatever
// single request caused the server to start reporting progress.
func (m *Manager) Create(ctx context.Context, token protocol.ProgressToken) error {
	if err := m.sender.Request(ctx, "window/workDoneProgress/create", protocol.WorkDoneProgressCreateParams{Token: token}, nil); err != nil {
		return fmt.Errorf("progress: create %s: %w", token, err)
	}
	m.mu.Lock()
	m.workDone[token.String()] = workDoneEntry{ephemeral: false}
	m.mu.Unlock()
	return nil
}

// Attach records a token the client supplied directly on a request's
// workDoneToken field, with no create handshake. It is ephemeral: released
// automatically when ReleaseRequestDone is called for it.
func (m *Manager) Attach(token protocol.ProgressToken) {
	if token.IsZero() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workDone[token.String()]; !ok {
		m.workDone[token.String()] = workDoneEntry{ephemeral: true}
	}
}

func (m *Manager) isActive(token protocol.ProgressToken) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workDone[token.String()]
	return ok
}

// Begin sends a WorkDoneProgressBegin value over $/progress.
func (m *Manager) Begin(token protocol.ProgressToken, title string, cancellable bool) error {
	return m.sendWorkDone(token, protocol.WorkDoneProgressBegin{Kind: "begin", Title: title, Cancellable: cancellable})
}

// Report sends a WorkDoneProgressReport value over $/progress.
func (m *Manager) Report(token protocol.ProgressToken, message string, percentage int) error {
	return m.sendWorkDone(token, protocol.WorkDoneProgressReport{Kind: "report", Message: message, Percentage: percentage})
}

// End sends a WorkDoneProgressEnd value and releases the token, whether it
// was attached or created.
func (m *Manager) End(token protocol.ProgressToken, message string) error {
	err := m.sendWorkDone(token, protocol.WorkDoneProgressEnd{Kind: "end", Message: message})
	m.mu.Lock()
	delete(m.workDone, token.String())
	m.mu.Unlock()
	return err
}

func (m *Manager) sendWorkDone(token protocol.ProgressToken, value interface{}) error {
	if !m.isActive(token) {
		return fmt.Errorf("progress: token %s is not active", token)
	}
	return m.sender.Notify("$/progress", protocol.ProgressParams{Token: token, Value: value})
}

// CancelWorkDone implements window/workDoneProgress/cancel: the token is
// released immediately regardless of ephemerality.
func (m *Manager) CancelWorkDone(token protocol.ProgressToken) {
	m.mu.Lock()
	delete(m.workDone, token.String())
	m.mu.Unlock()
}

// ReleaseRequestDone drops token if it was ephemeral (attached, not
// created); a token established via Create persists until End or
// CancelWorkDone. Safe to call for a token that was never registered.
func (m *Manager) ReleaseRequestDone(token protocol.ProgressToken) {
	if token.IsZero() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.workDone[token.String()]; ok && e.ephemeral {
		delete(m.workDone, token.String())
	}
}

// SendPartial streams one chunk of a partial result over $/progress. The
// router already knows which request and binding a chunk belongs to from
// its own dispatch state, so the token needs no separate reply-slot lookup
// here.
func (m *Manager) SendPartial(token protocol.ProgressToken, value interface{}) error {
	return m.sender.Notify("$/progress", protocol.ProgressParams{Token: token, Value: value})
}
