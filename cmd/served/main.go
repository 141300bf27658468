// Command served runs the language server over stdio or a tcp listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/saibing/served"
	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/internal/rpc"

	_ "net/http/pprof"
)

var (
	mode         = flag.String("mode", "stdio", "communication mode (stdio|tcp)")
	addr         = flag.String("addr", ":4390", "server listen address (tcp)")
	trace        = flag.Bool("trace", false, "log every frame read from and written to the client")
	logfile      = flag.String("logfile", "", "also log to this file (in addition to stderr)")
	configFile   = flag.String("configfile", "", "hot-reload configuration from this file whenever it changes on disk")
	printVersion = flag.Bool("version", false, "print version and exit")
	pprofAddr    = flag.String("pprof", "", "start a pprof http server (https://golang.org/pkg/net/http/pprof/)")
)

const version = "v1-dev"

func main() {
	flag.Parse()

	if *printVersion {
		fmt.Println(version)
		return
	}

	if *pprofAddr != "" {
		go func() {
			fmt.Fprintln(os.Stderr, http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logW, closer, err := logging.WithFile(*logfile)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	log := logging.New(logW, "")

	switch *mode {
	case "stdio":
		log.Printf("served: reading on stdin, writing on stdout")
		r, w := traced(stdrwc{}, stdrwc{}, log)
		srv := served.NewServer(log, served.NewConn(log, rpc.NewStream(r, w)))
		if closeWatch := watchConfig(srv, log); closeWatch != nil {
			defer closeWatch()
		}
		err := srv.Serve(context.Background())
		if err != nil && err != io.EOF {
			return err
		}
		log.Printf("served: connection closed")
		return nil

	case "tcp":
		lis, err := net.Listen("tcp", *addr)
		if err != nil {
			return err
		}
		defer lis.Close()
		log.Printf("served: listening on %s", *addr)

		for {
			conn, err := lis.Accept()
			if err != nil {
				return err
			}
			go serveConn(conn, log)
		}

	default:
		return fmt.Errorf("served: invalid mode %q", *mode)
	}
}

func serveConn(conn net.Conn, log *logging.Logger) {
	defer conn.Close()
	connLog := logging.New(log.Writer(), fmt.Sprintf("[%s] ", conn.RemoteAddr()))
	r, w := traced(conn, conn, connLog)
	srv := served.NewServer(connLog, served.NewConn(connLog, rpc.NewStream(r, w)))
	if closeWatch := watchConfig(srv, connLog); closeWatch != nil {
		defer closeWatch()
	}
	if err := srv.Serve(context.Background()); err != nil && err != io.EOF {
		connLog.Errorf("served: connection %s: %v", conn.RemoteAddr(), err)
		return
	}
	connLog.Printf("served: connection %s closed", conn.RemoteAddr())
}

// watchConfig starts hot-reloading srv's configuration from -configfile, if
// set, and returns a func that stops the watch; nil if -configfile is
// unset or the watch could not be started (logged and otherwise ignored,
// since a failed config watch should not keep the server from running).
func watchConfig(srv *served.Server, log *logging.Logger) func() {
	if *configFile == "" {
		return nil
	}
	w, err := srv.WatchConfigFile(*configFile)
	if err != nil {
		log.Errorf("served: watching -configfile %q: %v", *configFile, err)
		return nil
	}
	return func() { w.Close() }
}

// traced wraps r and w so every frame's raw bytes are also written to log,
// when -trace is set; otherwise it returns r and w unchanged.
func traced(r io.Reader, w io.Writer, log *logging.Logger) (io.Reader, io.Writer) {
	if !*trace {
		return r, w
	}
	return io.TeeReader(r, tracePrefixWriter{log, "<- "}), io.MultiWriter(w, tracePrefixWriter{log, "-> "})
}

type tracePrefixWriter struct {
	log    *logging.Logger
	prefix string
}

func (t tracePrefixWriter) Write(p []byte) (int, error) {
	t.log.Printf("%s%s", t.prefix, p)
	return len(p), nil
}

// stdrwc adapts os.Stdin/os.Stdout to a single io.ReadWriter for stdio mode.
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
