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
	"sync"
	"time"

	"symsync/internal/daemon"
	"symsync/internal/logging"
	"symsync/internal/logs"
)

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
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("SymSync", srv); err != nil {
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

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually before the next start"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.LogPath = status.LogPath
	resp.Configs = make([]LinkConfig, 0, len(status.Configs))
	for _, cfg := range status.Configs {
		resp.Configs = append(resp.Configs, fromConfig(cfg))
	}
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	s.daemon.RequestShutdown()
	resp.Stopping = true
	return nil
}

func (s *service) LinkCreate(req LinkCreateRequest, resp *LinkCreateResponse) error {
	cfg, err := s.daemon.Manager().Create(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Config = fromConfig(cfg)
	s.logger.Info("link configuration created",
		logging.String(logging.FieldConfigID, cfg.ID),
		logging.String("name", cfg.Name))
	return nil
}

func (s *service) LinkList(_ LinkListRequest, resp *LinkListResponse) error {
	configs := s.daemon.Manager().List()
	resp.Configs = make([]LinkConfig, 0, len(configs))
	for _, cfg := range configs {
		resp.Configs = append(resp.Configs, fromConfig(cfg))
	}
	return nil
}

func (s *service) LinkShow(req LinkShowRequest, resp *LinkShowResponse) error {
	cfg, err := s.daemon.Manager().Get(req.ID)
	if err != nil {
		return err
	}
	resp.Config = fromConfig(cfg)
	return nil
}

func (s *service) LinkRename(req LinkRenameRequest, _ *LinkRenameResponse) error {
	return s.daemon.Manager().Rename(s.ctx, req.ID, req.Name)
}

func (s *service) LinkSetTarget(req LinkSetTargetRequest, _ *LinkSetTargetResponse) error {
	return s.daemon.Manager().SetTarget(s.ctx, req.ID, req.Target)
}

func (s *service) LinkSetInterval(req LinkSetIntervalRequest, _ *LinkSetIntervalResponse) error {
	return s.daemon.Manager().SetRescanInterval(s.ctx, req.ID, time.Duration(req.Seconds)*time.Second)
}

func (s *service) LinkAddSource(req LinkAddSourceRequest, _ *LinkAddSourceResponse) error {
	return s.daemon.Manager().AddSource(s.ctx, req.ID, req.Source)
}

func (s *service) LinkRemoveSource(req LinkRemoveSourceRequest, _ *LinkRemoveSourceResponse) error {
	return s.daemon.Manager().RemoveSource(s.ctx, req.ID, req.Source, req.RemoveLinks)
}

func (s *service) LinkStart(req LinkStartRequest, resp *LinkStartResponse) error {
	m := s.daemon.Manager()
	if err := m.Start(s.ctx, req.ID); err != nil {
		return err
	}
	cfg, err := m.Get(req.ID)
	if err != nil {
		return err
	}
	resp.Config = fromConfig(cfg)
	s.logger.Info("link configuration started",
		logging.String(logging.FieldConfigID, req.ID))
	return nil
}

func (s *service) LinkStop(req LinkStopRequest, _ *LinkStopResponse) error {
	if err := s.daemon.Manager().Stop(s.ctx, req.ID); err != nil {
		return err
	}
	s.logger.Info("link configuration stopped",
		logging.String(logging.FieldConfigID, req.ID))
	return nil
}

func (s *service) LinkDelete(req LinkDeleteRequest, _ *LinkDeleteResponse) error {
	if err := s.daemon.Manager().Delete(s.ctx, req.ID, req.RemoveLinks); err != nil {
		return err
	}
	s.logger.Info("link configuration deleted",
		logging.String(logging.FieldConfigID, req.ID))
	return nil
}

func (s *service) LinkLogs(req LinkLogsRequest, resp *LinkLogsResponse) error {
	logs, err := s.daemon.Manager().Logs(req.ID)
	if err != nil {
		return err
	}
	resp.Logs = logs
	return nil
}

func (s *service) Rescan(req RescanRequest, _ *RescanResponse) error {
	return s.daemon.Manager().ForceRescan(s.ctx, req.ID)
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
