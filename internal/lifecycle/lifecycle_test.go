package lifecycle

import (
	"context"
	"testing"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"
	"github.com/saibing/served/internal/scheduler"
	"github.com/saibing/served/protocol"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	requests []string
}

func (f *fakeSender) Request(ctx context.Context, method string, params interface{}, result interface{}) error {
	f.requests = append(f.requests, method)
	return nil
}

type fakeCaps struct {
	bound map[string]bool
}

func (f fakeCaps) HasBinding(method string) bool { return f.bound[method] }

func newTestLifecycle(caps CapabilitySource) (*Lifecycle, *fakeSender) {
	log := logging.Default("[test] ")
	sched := scheduler.New(log)
	sender := &fakeSender{}
	return New(log, sched, sender, caps), sender
}

func TestGateRejectsNonInitializeBeforeReady(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLifecycle(nil)

	err := l.Gate("textDocument/hover")
	require.NotNil(err)
	require.Equal(rpc.ServerNotInitialized, err.Code)

	require.Nil(l.Gate("initialize"))
}

func TestInitializeThenInitializedReachesReady(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLifecycle(nil)

	_, err := l.Initialize(protocol.InitializeParams{})
	require.NoError(err)
	require.Equal(Initializing, l.State())

	l.Initialized()
	require.Equal(Ready, l.State())
	require.Nil(l.Gate("textDocument/hover"))
}

func TestDoubleInitializeFails(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLifecycle(nil)

	_, err := l.Initialize(protocol.InitializeParams{})
	require.NoError(err)
	_, err = l.Initialize(protocol.InitializeParams{})
	require.Error(err)
}

func TestCapabilitiesReflectRegisteredBindings(t *testing.T) {
	require := require.New(t)
	caps := fakeCaps{bound: map[string]bool{"textDocument/hover": true, "workspace/symbol": true}}
	l, _ := newTestLifecycle(caps)

	result, err := l.Initialize(protocol.InitializeParams{})
	require.NoError(err)
	require.True(result.Capabilities.HoverProvider)
	require.True(result.Capabilities.WorkspaceSymbolProvider)
	require.False(result.Capabilities.DefinitionProvider)
	require.NotNil(result.Capabilities.TextDocumentSync)
	require.Equal(protocol.SyncFull, *result.Capabilities.TextDocumentSync.Kind)
}

func TestShutdownGatesEverythingButExit(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLifecycle(nil)
	_, _ = l.Initialize(protocol.InitializeParams{})
	l.Initialized()

	l.Shutdown()
	require.Equal(ShuttingDown, l.State())

	err := l.Gate("textDocument/hover")
	require.NotNil(err)
	require.Equal(rpc.InvalidRequest, err.Code)
	require.Nil(l.Gate("exit"))
}

func TestRepeatedShutdownIsNotAnError(t *testing.T) {
	l, _ := newTestLifecycle(nil)
	l.Shutdown()
	require.NotPanics(t, func() { l.Shutdown() })
}

func TestExitCodeCleanFromShuttingDown(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLifecycle(nil)
	l.Shutdown()
	require.Equal(ExitClean, l.Exit())
	require.Equal(Exited, l.State())
}

func TestExitCodeErrorFromEarlyState(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLifecycle(nil)
	require.Equal(ExitError, l.Exit())
}

func TestRegisterThenUnregisterCapabilityIsIdempotent(t *testing.T) {
	require := require.New(t)
	l, sender := newTestLifecycle(nil)

	id, err := l.RegisterCapability(context.Background(), "workspace/didChangeWatchedFiles", nil)
	require.NoError(err)
	require.Contains(sender.requests, "client/registerCapability")

	require.NoError(l.UnregisterCapability(context.Background(), id))
	require.Contains(sender.requests, "client/unregisterCapability")

	sender.requests = nil
	require.NoError(l.UnregisterCapability(context.Background(), id))
	require.Empty(sender.requests)
}
