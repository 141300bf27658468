package served

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/saibing/served/internal/config"
	"github.com/saibing/served/internal/document"
	"github.com/saibing/served/internal/events"
	"github.com/saibing/served/internal/lifecycle"
	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/progress"
	"github.com/saibing/served/internal/router"
	"github.com/saibing/served/internal/rpc"
	"github.com/saibing/served/internal/scheduler"
	"github.com/saibing/served/internal/toolpool"
	"github.com/saibing/served/protocol"
)

// Server is the assembled runtime: every component wired to a single
// connection. cmd/served constructs one per accepted connection (tcp mode)
// or once for the process lifetime (stdio mode).
type Server struct {
	log     *logging.Logger
	conn    *Conn
	sched   *scheduler.Scheduler
	docs    *document.Manager
	prog    *progress.Manager
	router  *router.Router
	life    *lifecycle.Lifecycle
	events  *events.Dispatcher
	tools   *toolpool.Pool
	watcher *config.Watcher

	// cfgValue holds the current config.Config. It is read and overwritten
	// from scheduler tasks (Config/handleInitialize/handleDidChangeConfiguration)
	// and, once WatchConfigFile is used, from the config package's own
	// fsnotify goroutine running outside the scheduler's single-run-token
	// discipline — atomic.Value keeps that cross-goroutine handoff safe the
	// same way document.Manager publishes snapshots.
	cfgValue atomic.Value
}

// NewServer wires C1–C9 and the ambient packages around conn and returns a
// Server with only the built-in protocol methods registered. Callers add
// domain handler modules with Router before calling Serve.
func NewServer(log *logging.Logger, conn *Conn) *Server {
	sched := scheduler.New(log)
	docs := document.NewManager(log, true)
	prog := progress.New(conn)
	r := router.New(log, sched, docs, prog, conn)
	life := lifecycle.New(log, sched, conn, r)
	ev := events.New(log, sched)

	s := &Server{
		log:    log,
		conn:   conn,
		sched:  sched,
		docs:   docs,
		prog:   prog,
		router: r,
		life:   life,
		events: ev,
		tools:  toolpool.New(),
	}
	s.cfgValue.Store(config.NewDefaultConfig())
	s.registerBuiltins()
	return s
}

// WatchConfigFile starts watching path on disk and hot-reloads the
// server's configuration whenever it changes, the same treatment a
// workspace/didChangeConfiguration notification gets from the client.
// Callers (cmd/served) own the returned Watcher's lifetime and should Close
// it on shutdown.
func (s *Server) WatchConfigFile(path string) (*config.Watcher, error) {
	w, err := config.WatchFile(s.log, path, s.Config(), func(next config.Config) {
		s.setConfig(next)
	})
	if err != nil {
		return nil, err
	}
	s.watcher = w
	return w, nil
}

func (s *Server) setConfig(cfg config.Config) {
	s.cfgValue.Store(cfg)
}

// Router exposes the method registry so domain handler modules can add
// their own bindings before Serve starts reading.
func (s *Server) Router() *router.Router { return s.router }

// Documents exposes the live document set for handler modules.
func (s *Server) Documents() *document.Manager { return s.docs }

// Tools exposes the pooled external-tool handles for handler modules.
func (s *Server) Tools() *toolpool.Pool { return s.tools }

// Events exposes the internal lifecycle event dispatcher so handler
// modules can subscribe to onRegisteredComponents/onProjectAvailable/
// onAddingProject/onAddedProject.
func (s *Server) Events() *events.Dispatcher { return s.events }

// Config returns the currently resolved configuration.
func (s *Server) Config() config.Config { return s.cfgValue.Load().(config.Config) }

func (s *Server) registerBuiltins() {
	must := func(err error) {
		if err != nil {
			panic(err) // only reachable if a builtin method is double-registered, a programming error
		}
	}

	must(s.router.Register("initialize", router.KindRequest, s.handleInitialize, router.Options{}))
	must(s.router.Register("initialized", router.KindNotification, s.handleInitialized, router.Options{}))
	must(s.router.Register("shutdown", router.KindRequest, s.handleShutdown, router.Options{}))
	must(s.router.Register("exit", router.KindNotification, s.handleExit, router.Options{}))

	must(s.router.Register("textDocument/didOpen", router.KindNotification, s.handleDidOpen, router.Options{}))
	must(s.router.Register("textDocument/didChange", router.KindNotification, s.handleDidChange, router.Options{}))
	must(s.router.Register("textDocument/didClose", router.KindNotification, s.handleDidClose, router.Options{}))
	must(s.router.Register("textDocument/didSave", router.KindNotification, s.handleDidSave, router.Options{}))

	must(s.router.Register("workspace/didChangeConfiguration", router.KindNotification, s.handleDidChangeConfiguration, router.Options{}))

	must(s.router.Register("window/workDoneProgress/cancel", router.KindNotification, s.handleWorkDoneProgressCancel, router.Options{}))
}

func (s *Server) handleInitialize(c *router.Context, params *json.RawMessage) (interface{}, error) {
	var p protocol.InitializeParams
	if _, err := router.DecodeParams(params, &p); err != nil {
		return nil, rpc.NewError(rpc.InvalidParams, "%v", err)
	}
	if p.InitializationOptions != nil {
		s.setConfig(s.Config().Apply(p.InitializationOptions))
	}
	result, err := s.life.Initialize(p)
	if err != nil {
		return nil, rpc.NewError(rpc.InvalidRequest, "%v", err)
	}
	return result, nil
}

func (s *Server) handleInitialized(c *router.Context, params *json.RawMessage) (interface{}, error) {
	s.life.Initialized()
	s.events.Fire(c, events.RegisteredComponents, nil)
	return nil, nil
}

func (s *Server) handleShutdown(c *router.Context, params *json.RawMessage) (interface{}, error) {
	s.life.Shutdown()
	return nil, nil
}

func (s *Server) handleExit(c *router.Context, params *json.RawMessage) (interface{}, error) {
	s.life.Exit()
	return nil, nil
}

func (s *Server) handleDidOpen(c *router.Context, params *json.RawMessage) (interface{}, error) {
	var p protocol.DidOpenTextDocumentParams
	if _, err := router.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	s.docs.Open(p.TextDocument)
	s.events.Fire(c, events.ProjectAvailable, p.TextDocument.URI)
	return nil, nil
}

func (s *Server) handleDidChange(c *router.Context, params *json.RawMessage) (interface{}, error) {
	var p protocol.DidChangeTextDocumentParams
	if _, err := router.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return nil, s.docs.Change(p.TextDocument, p.ContentChanges)
}

func (s *Server) handleDidClose(c *router.Context, params *json.RawMessage) (interface{}, error) {
	var p protocol.DidCloseTextDocumentParams
	if _, err := router.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	s.docs.Close(p.TextDocument)
	return nil, nil
}

func (s *Server) handleDidSave(c *router.Context, params *json.RawMessage) (interface{}, error) {
	var p protocol.DidSaveTextDocumentParams
	if _, err := router.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return nil, s.docs.Save(p.TextDocument, p.Text)
}

func (s *Server) handleDidChangeConfiguration(c *router.Context, params *json.RawMessage) (interface{}, error) {
	if params == nil {
		return nil, nil
	}
	s.setConfig(s.Config().ApplyRaw(s.log, *params))
	return nil, nil
}

func (s *Server) handleWorkDoneProgressCancel(c *router.Context, params *json.RawMessage) (interface{}, error) {
	var p protocol.WorkDoneProgressCancelParams
	if _, err := router.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	s.prog.CancelWorkDone(p.Token)
	return nil, nil
}

// Serve reads frames from conn's stream until a read fails (io.EOF once the
// stream is closed) and returns that error. ctx is handed to every
// dispatched task; cancelling it does not stop the read loop.
// Response-shaped messages resolve a pending outbound Request;
// $/cancelRequest is handled directly against the scheduler rather than
// routed as an ordinary method, since it acts on another request's task
// instead of running one of its own; other notifications go straight to the
// router, and requests are gated by server state and, if admitted, handed
// to the router.
func (s *Server) Serve(ctx context.Context) error {
	for {
		msg, err := s.conn.stream.Read()
		if err != nil {
			return err
		}

		switch msg.Kind() {
		case rpc.KindResponse:
			s.conn.resolve(msg)
		case rpc.KindNotification:
			if msg.Method == "$/cancelRequest" {
				s.handleCancel(msg)
				continue
			}
			s.router.Dispatch(ctx, msg)
		case rpc.KindRequest:
			id := *msg.ID
			if rpcErr := s.life.Gate(msg.Method); rpcErr != nil {
				if err := s.conn.Respond(id, nil, rpcErr); err != nil {
					s.log.Errorf("served: responding to gated request %s: %v", msg.Method, err)
				}
				continue
			}
			s.router.Dispatch(ctx, msg)
		}
	}
}

func (s *Server) handleCancel(msg *rpc.Message) {
	var p protocol.CancelParams
	if _, err := msg.DecodeParams(&p); err != nil {
		s.log.Warnf("served: malformed $/cancelRequest: %v", err)
		return
	}
	var id rpc.ID
	if err := json.Unmarshal(p.ID, &id); err != nil {
		s.log.Warnf("served: $/cancelRequest carries an unparseable id: %v", err)
		return
	}
	s.sched.Cancel(id)
}
