package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/saibing/served/protocol"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu            sync.Mutex
	notifications []sent
	nextReqErr    error
}

type sent struct {
	method string
	params interface{}
}

func (f *fakeSender) Notify(method string, params interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, sent{method, params})
	return nil
}

func (f *fakeSender) Request(ctx context.Context, method string, params interface{}, result interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, sent{method, params})
	return f.nextReqErr
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sent, len(f.notifications))
	copy(out, f.notifications)
	return out
}

func TestCreateSendsHandshakeAndActivatesToken(t *testing.T) {
	require := require.New(t)
	sender := &fakeSender{}
	m := New(sender)
	token := NewToken()

	require.NoError(m.Create(context.Background(), token))
	require.NoError(m.Begin(token, "indexing", false))

	msgs := sender.all()
	require.Len(msgs, 2)
	require.Equal("window/workDoneProgress/create", msgs[0].method)
	require.Equal("$/progress", msgs[1].method)
}

func TestBeginOnUnregisteredTokenFails(t *testing.T) {
	require := require.New(t)
	m := New(&fakeSender{})
	require.Error(m.Begin(NewToken(), "title", false))
}

func TestAttachedTokenIsEphemeralAndReleasedOnRequestDone(t *testing.T) {
	require := require.New(t)
	sender := &fakeSender{}
	m := New(sender)
	token := protocol.NewProgressToken("client-token")

	m.Attach(token)
	require.NoError(m.Report(token, "working", 50))

	m.ReleaseRequestDone(token)
	require.Error(m.Report(token, "should fail", 60))
}

func TestCreatedTokenOutlivesRequestDone(t *testing.T) {
	require := require.New(t)
	sender := &fakeSender{}
	m := New(sender)
	token := NewToken()

	require.NoError(m.Create(context.Background(), token))
	m.ReleaseRequestDone(token)

	require.NoError(m.Report(token, "still alive", 10))
}

func TestEndReleasesEphemeralToken(t *testing.T) {
	require := require.New(t)
	sender := &fakeSender{}
	m := New(sender)
	token := protocol.NewProgressToken("client-token")

	m.Attach(token)
	require.NoError(m.End(token, "done"))
	require.Error(m.Report(token, "too late", 100))
}

func TestCancelWorkDoneReleasesRegardlessOfEphemerality(t *testing.T) {
	require := require.New(t)
	sender := &fakeSender{}
	m := New(sender)
	token := NewToken()

	require.NoError(m.Create(context.Background(), token))
	m.CancelWorkDone(token)
	require.Error(m.Begin(token, "title", false))
}

func TestTokenEqualityIsValueTyped(t *testing.T) {
	require := require.New(t)
	a := protocol.NewProgressToken("tok")
	b := protocol.NewProgressToken("tok")
	require.True(a.Equal(b))
	require.Equal(a.String(), b.String())
}

func TestSendPartialDoesNotRequireRegistration(t *testing.T) {
	require := require.New(t)
	sender := &fakeSender{}
	m := New(sender)
	token := protocol.NewProgressToken("partial-2")

	require.NoError(m.SendPartial(token, []string{"chunk"}))
	msgs := sender.all()
	require.Len(msgs, 1)
	require.Equal("$/progress", msgs[0].method)
}
