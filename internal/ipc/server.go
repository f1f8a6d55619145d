package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"scanstation/internal/api"
	"scanstation/internal/daemon"
	"scanstation/internal/history"
	"scanstation/internal/logging"
	"scanstation/internal/logs"
)

const defaultHistoryLimit = 50

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts connections in the background until Close or the parent
// context ends. Each connection gets its own JSON-RPC codec.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Go(s.acceptLoop)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		switch {
		case err == nil:
			s.wg.Go(func() { s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn)) })
		case s.ctx.Err() != nil, errors.Is(err, net.ErrClosed):
			return
		default:
			logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "CLI commands cannot reach the station"),
				logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
		}
	}
}

// Close stops accepting, waits for connected clients to hang up, and removes
// the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale socket makes the next start think the station is up"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(s.logger, "ipc")
}

// accepted describes a station action the daemon took for handle.
func accepted(handle, action string) ActionResponse {
	return ActionResponse{Handle: strings.TrimSpace(handle), Action: action, Known: true}
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC", logging.EventType("daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC", logging.EventType("daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).API()
	return nil
}

func (s *service) Enter(req EnterRequest, resp *ActionResponse) error {
	if err := s.daemon.Enter(req.Handle, req.Attrs); err != nil {
		return err
	}
	*resp = accepted(req.Handle, "enter")
	return nil
}

func (s *service) Exit(req ExitRequest, resp *ActionResponse) error {
	if err := s.daemon.Exit(req.Handle); err != nil {
		return err
	}
	*resp = accepted(req.Handle, "exit")
	return nil
}

func (s *service) Dispose(req DisposeRequest, resp *ActionResponse) error {
	if err := s.daemon.Dispose(req.Handle, req.Leave); err != nil {
		return err
	}
	*resp = accepted(req.Handle, "disposal_enter")
	if req.Leave {
		resp.Action = "disposal_exit"
	}
	return nil
}

func (s *service) Forget(req ForgetRequest, resp *ActionResponse) error {
	known, err := s.daemon.Forget(req.Handle)
	if err != nil {
		return err
	}
	*resp = accepted(req.Handle, "forget")
	if !known {
		resp.Known = false
		resp.Message = fmt.Sprintf("handle %q not known", resp.Handle)
	}
	return nil
}

func (s *service) Reset(_ ResetRequest, resp *ActionResponse) error {
	s.log().Debug("station reset requested")
	if err := s.daemon.Reset(); err != nil {
		return err
	}
	*resp = ActionResponse{Action: "reset", Message: "station reset"}
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	filter := history.Filter{
		RequestID: strings.TrimSpace(req.RequestID),
		Limit:     req.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if value := strings.TrimSpace(req.Outcome); value != "" {
		outcome, err := history.ParseOutcome(value)
		if err != nil {
			return err
		}
		filter.Outcome = outcome
	}
	entries, stats, err := s.daemon.History(s.ctx, filter)
	if err != nil {
		return err
	}
	*resp = api.HistoryListResponse{
		Entries: api.FromHistoryEntries(entries),
		Counts:  api.FromHistoryStats(stats),
		Total:   stats.Total,
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	result, err := s.daemon.TailLog(s.ctx, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   time.Duration(req.WaitMillis) * time.Millisecond,
		Match:  req.Match,
	})
	if err != nil {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotifyRequest, resp *TestNotifyResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return err
	}
	*resp = TestNotifyResponse{Sent: sent, Message: message}
	return nil
}
