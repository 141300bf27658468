// Package router maps LSP method names to registered handlers, spawns a
// task per binding on the scheduler, and assembles replies — including the
// multi-binding streaming/concatenation behavior array-returning methods
// like workspace/symbol need.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/saibing/served/internal/document"
	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/progress"
	"github.com/saibing/served/internal/rpc"
	"github.com/saibing/served/internal/scheduler"
	"github.com/saibing/served/internal/toolpool"
	"github.com/saibing/served/protocol"
)

// Kind distinguishes requests (which owe a response) from notifications.
type Kind int

const (
	KindRequest Kind = iota
	KindNotification
)

// Context is handed to every handler. It embeds the scheduler's
// TaskContext so handlers can Yield and observe cancellation, and carries
// the collaborators a handler typically needs: the live document set, the
// progress manager, and whichever progress tokens the request carried.
type Context struct {
	*scheduler.TaskContext
	Documents          *document.Manager
	Progress           *progress.Manager
	WorkDoneToken      *protocol.ProgressToken
	PartialResultToken *protocol.ProgressToken
}

// Handler is registered code for one method binding. params aliases the
// message's raw JSON and is nil for a method with no params.
type Handler func(c *Context, params *json.RawMessage) (interface{}, error)

// DecodeParams unmarshals raw into v, mirroring rpc.Message.DecodeParams.
// Returns false if raw is nil, in which case v keeps its zero value.
func DecodeParams(raw *json.RawMessage, v interface{}) (bool, error) {
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(*raw, v); err != nil {
		return true, fmt.Errorf("router: decode params: %w", err)
	}
	return true, nil
}

// PostHook runs after a binding's handler returns, seeing its params,
// result, and error. Used for side effects like firing document-changed
// events; a hook's own failure is logged and never changes the response.
type PostHook func(c *Context, params *json.RawMessage, result interface{}, err error)

// Options configures a Register call.
type Options struct {
	// Multi declares this binding's result as one chunk of an ordered
	// sequence; the declared result type must be a slice. At most one
	// non-multi binding is ever allowed per method, and it cannot coexist
	// with multi bindings.
	Multi     bool
	PostHooks []PostHook
}

// DuplicateBinding is returned by Register when a method already has an
// incompatible binding: two non-multi bindings, or a non-multi binding
// alongside any multi binding.
type DuplicateBinding struct {
	Method string
}

func (e *DuplicateBinding) Error() string {
	return fmt.Sprintf("router: method %q already has an incompatible binding", e.Method)
}

type binding struct {
	handler   Handler
	postHooks []PostHook
}

type methodEntry struct {
	kind     Kind
	multi    bool
	bindings []*binding
}

func (e *methodEntry) snapshot() []*binding {
	out := make([]*binding, len(e.bindings))
	copy(out, e.bindings)
	return out
}

// Sender is the outbound surface Router needs to deliver a response.
// Notifications and server-to-client requests go through progress.Sender
// instead; a Router never originates either.
type Sender interface {
	Respond(id rpc.ID, result interface{}, rpcErr *rpc.Error) error
}

// Router owns the method registry and dispatches incoming messages.
// Handlers are referenced, never owned: the registry outlives no handler
// and holds no cyclic reference back into the handler's own state.
type Router struct {
	log         *logging.Logger
	sched       *scheduler.Scheduler
	docs        *document.Manager
	progressMgr *progress.Manager
	sender      Sender

	mu      sync.Mutex
	methods map[string]*methodEntry
}

// New returns a Router ready to accept registrations.
func New(log *logging.Logger, sched *scheduler.Scheduler, docs *document.Manager, progressMgr *progress.Manager, sender Sender) *Router {
	return &Router{
		log:         log,
		sched:       sched,
		docs:        docs,
		progressMgr: progressMgr,
		sender:      sender,
		methods:     make(map[string]*methodEntry),
	}
}

// Register binds handler to method. Registering the same method twice with
// incompatible multiplicities fails with *DuplicateBinding.
func (r *Router) Register(method string, kind Kind, handler Handler, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.methods[method]
	if !ok {
		entry = &methodEntry{kind: kind, multi: opts.Multi}
		r.methods[method] = entry
	} else {
		if entry.kind != kind {
			return fmt.Errorf("router: method %q already registered as a different kind", method)
		}
		if !entry.multi || !opts.Multi {
			return &DuplicateBinding{Method: method}
		}
	}

	entry.bindings = append(entry.bindings, &binding{handler: handler, postHooks: opts.PostHooks})
	return nil
}

// HasBinding reports whether method has at least one registered binding of
// either kind. Used by server lifecycle to negotiate ServerCapabilities
// from what is actually registered instead of a fixed feature list.
func (r *Router) HasBinding(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.methods[method]
	return ok && len(entry.bindings) > 0
}

// Dispatch routes one decoded message: a request schedules tasks and
// eventually writes a response; a notification schedules tasks and writes
// nothing. A response-shaped message has no business reaching Dispatch and
// is dropped with a warning (the transport layer demultiplexes pending
// outbound requests before messages ever get here).
func (r *Router) Dispatch(ctx context.Context, msg *rpc.Message) {
	switch msg.Kind() {
	case rpc.KindRequest:
		r.dispatchRequest(ctx, msg)
	case rpc.KindNotification:
		r.dispatchNotification(ctx, msg)
	default:
		r.log.Warnf("router: dropping response-shaped message for method %q", msg.Method)
	}
}

type tokenPeek struct {
	workDone *protocol.ProgressToken
	partial  *protocol.ProgressToken
}

// peekTokens extracts workDoneToken/partialResultToken without forcing a
// full typed decode of params; the handler still decodes its own params
// type from the same raw bytes.
func peekTokens(raw *json.RawMessage) tokenPeek {
	if raw == nil {
		return tokenPeek{}
	}
	var v struct {
		WorkDoneToken      *protocol.ProgressToken `json:"workDoneToken"`
		PartialResultToken *protocol.ProgressToken `json:"partialResultToken"`
	}
	_ = json.Unmarshal(*raw, &v)
	return tokenPeek{workDone: v.WorkDoneToken, partial: v.PartialResultToken}
}

func (r *Router) lookup(method string, kind Kind) (*methodEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.methods[method]
	if !ok || entry.kind != kind || len(entry.bindings) == 0 {
		return nil, false
	}
	return entry, true
}

func (r *Router) dispatchRequest(ctx context.Context, msg *rpc.Message) {
	id := *msg.ID

	entry, ok := r.lookup(msg.Method, KindRequest)
	if !ok {
		r.respond(id, nil, rpc.NewError(rpc.MethodNotFound, "method not found: %s", msg.Method))
		return
	}

	tokens := peekTokens(msg.Params)
	if tokens.workDone != nil {
		r.progressMgr.Attach(*tokens.workDone)
	}

	bindings := entry.snapshot()
	resultChs := make([]<-chan scheduler.Result, len(bindings))
	for i, b := range bindings {
		resultChs[i] = r.submit(ctx, msg, id, tokens, b)
	}

	go func() {
		r.assemble(id, msg.Method, entry.multi, tokens.partial, resultChs)
		if tokens.workDone != nil {
			r.progressMgr.ReleaseRequestDone(*tokens.workDone)
		}
	}()
}

func (r *Router) dispatchNotification(ctx context.Context, msg *rpc.Message) {
	entry, ok := r.lookup(msg.Method, KindNotification)
	if !ok {
		r.log.Warnf("router: no handler registered for notification %q", msg.Method)
		return
	}

	for _, b := range entry.snapshot() {
		resultCh := r.submit(ctx, msg, rpc.ID{}, tokenPeek{}, b)
		go func(method string) {
			res := <-resultCh
			if res.Err != nil {
				r.log.Errorf("router: notification %s failed: %v", method, res.Err)
			}
		}(msg.Method)
	}
}

func (r *Router) submit(ctx context.Context, msg *rpc.Message, id rpc.ID, tokens tokenPeek, b *binding) <-chan scheduler.Result {
	return r.sched.Submit(ctx, msg.Method, id, func(tc *scheduler.TaskContext) (interface{}, error) {
		c := &Context{
			TaskContext:        tc,
			Documents:          r.docs,
			Progress:           r.progressMgr,
			WorkDoneToken:      tokens.workDone,
			PartialResultToken: tokens.partial,
		}
		val, err := r.runHandler(c, b.handler, msg.Params)
		for _, hook := range b.postHooks {
			hook(c, msg.Params, val, err)
		}
		return val, err
	})
}

func (r *Router) runHandler(c *Context, h Handler, params *json.RawMessage) (val interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorf("router: handler panic: %v\n%s", p, debug.Stack())
			err = rpc.NewError(rpc.InternalError, "internal error: %v", p)
		}
	}()
	return h(c, params)
}

// assemble drains one binding's result channel per registered binding, in
// registration order, and writes the eventual response. A request whose
// bindings were cancelled gets a RequestCancelled error even if some other
// binding had already succeeded.
func (r *Router) assemble(id rpc.ID, method string, multi bool, partialToken *protocol.ProgressToken, chans []<-chan scheduler.Result) {
	if !multi {
		res := <-chans[0]
		r.respond(id, res.Value, r.toRPCError(id, res.Err))
		return
	}

	var chunks []interface{}
	var firstErr, cancelErr error
	firstIdx := 0
	sawSuccess := false

	for i, ch := range chans {
		res := <-ch
		if res.Err != nil {
			if _, ok := res.Err.(*scheduler.Cancelled); ok && cancelErr == nil {
				cancelErr = res.Err
			}
			if firstErr == nil {
				firstErr, firstIdx = res.Err, i
			} else {
				r.log.Warnf("router: binding %d of %s failed: %v", i, method, res.Err)
			}
			continue
		}
		sawSuccess = true
		items := flatten(res.Value)
		chunks = append(chunks, items...)
		if partialToken != nil {
			if err := r.progressMgr.SendPartial(*partialToken, items); err != nil {
				r.log.Warnf("router: streaming partial result for %s: %v", method, err)
			}
		}
	}

	if cancelErr != nil {
		r.respond(id, nil, r.toRPCError(id, cancelErr))
		return
	}
	if !sawSuccess && firstErr != nil {
		r.respond(id, nil, r.toRPCError(id, firstErr))
		return
	}
	if firstErr != nil {
		r.log.Warnf("router: binding %d of %s failed: %v", firstIdx, method, firstErr)
	}
	r.respond(id, chunks, nil)
}

// flatten turns a multi binding's declared-slice result into []interface{}
// regardless of its concrete element type.
func flatten(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []interface{}{v}
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func (r *Router) respond(id rpc.ID, result interface{}, rpcErr *rpc.Error) {
	if err := r.sender.Respond(id, result, rpcErr); err != nil {
		r.log.Errorf("router: writing response for %s: %v", id, err)
	}
}

func (r *Router) toRPCError(id rpc.ID, err error) *rpc.Error {
	if err == nil {
		return nil
	}
	if rpcErr, ok := err.(*rpc.Error); ok {
		return rpcErr
	}
	if _, ok := err.(*scheduler.Cancelled); ok {
		return rpc.NewError(rpc.RequestCancelled, "request %s cancelled", id)
	}
	if err == scheduler.ErrShuttingDown {
		return rpc.NewError(rpc.InvalidRequest, "server is shutting down")
	}
	var tf *toolpool.ToolFailure
	if errors.As(err, &tf) {
		rpcErr := rpc.NewError(rpc.InternalError, "%v", err)
		rpcErr.Data = map[string]string{"tool": tf.Tool, "stderr": tf.Stderr}
		return rpcErr
	}
	return rpc.NewError(rpc.InternalError, "%v", err)
}
