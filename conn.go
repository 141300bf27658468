// Package served wires the runtime core components — transport, router,
// scheduler, progress, documents, lifecycle, events — into one running
// server, and is what cmd/served boots.
package served

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"
)

// pendingCall is an outbound server-to-client request awaiting its response.
type pendingCall struct {
	result chan *rpc.Message
}

// Conn pairs a framed rpc.Stream with outbound-request bookkeeping: it is
// the single object that implements router.Sender, progress.Sender, and
// lifecycle.Sender, since all three ultimately just need to write frames to
// the same stream and, for the request-shaped calls, match a reply back to
// its caller by id.
type Conn struct {
	log    *logging.Logger
	stream *rpc.Stream

	mu      sync.Mutex
	nextID  int64
	pending map[string]*pendingCall
}

// NewConn wraps stream for both inbound dispatch (see Server.Serve) and
// outbound requests/notifications/responses.
func NewConn(log *logging.Logger, stream *rpc.Stream) *Conn {
	return &Conn{
		log:     log,
		stream:  stream,
		pending: make(map[string]*pendingCall),
	}
}

// Respond implements router.Sender: it writes a response frame for a
// request the client sent us.
func (c *Conn) Respond(id rpc.ID, result interface{}, rpcErr *rpc.Error) error {
	var msg *rpc.Message
	var err error
	if rpcErr != nil {
		msg = rpc.NewErrorResponse(id, rpcErr)
	} else {
		msg, err = rpc.NewResponse(id, result)
		if err != nil {
			return err
		}
	}
	return c.stream.Write(msg)
}

// Notify implements progress.Sender: it writes a notification frame with no
// reply expected.
func (c *Conn) Notify(method string, params interface{}) error {
	msg, err := rpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.stream.Write(msg)
}

// Request implements progress.Sender and lifecycle.Sender: it writes a
// server-to-client request, then blocks until a matching response arrives
// or ctx is done. result may be nil (registerCapability-style requests
// that return no payload worth decoding).
func (c *Conn) Request(ctx context.Context, method string, params interface{}, result interface{}) error {
	id, call := c.registerCall()
	defer c.forgetCall(id)

	msg, err := rpc.NewRequest(id, method, params)
	if err != nil {
		return err
	}
	if err := c.stream.Write(msg); err != nil {
		return err
	}

	select {
	case reply := <-call.result:
		if reply.Error != nil {
			return reply.Error
		}
		if result == nil || reply.Result == nil {
			return nil
		}
		return json.Unmarshal(*reply.Result, result)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) registerCall() (rpc.ID, *pendingCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := rpc.NewNumberID(c.nextID)
	call := &pendingCall{result: make(chan *rpc.Message, 1)}
	c.pending[id.String()] = call
	return id, call
}

func (c *Conn) forgetCall(id rpc.ID) {
	c.mu.Lock()
	delete(c.pending, id.String())
	c.mu.Unlock()
}

// resolve delivers an inbound response to whichever outbound Request call
// is waiting on it. A response with no matching pending call (the peer
// replying twice, or after we gave up waiting) is dropped with a warning.
func (c *Conn) resolve(msg *rpc.Message) {
	if msg.ID == nil {
		c.log.Warnf("conn: response with no id")
		return
	}
	c.mu.Lock()
	call, ok := c.pending[msg.ID.String()]
	c.mu.Unlock()
	if !ok {
		c.log.Warnf("conn: response for unknown or already-resolved id %s", msg.ID)
		return
	}
	select {
	case call.result <- msg:
	default:
		c.log.Warnf("conn: dropping duplicate response for id %s", msg.ID)
	}
}
