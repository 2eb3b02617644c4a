package grpc_control

import (
	"context"
	"fmt"
	"net"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FeedManager is the feed control surface of the data source manager.
type FeedManager interface {
	ListStatus() []models.MFeedStatus
	StartFeed(name string) error
	StopFeed(name string) error
}

// AccountStats reports the size of the in-memory account set.
type AccountStats interface {
	Stats() (accounts int, positions int)
}

// PersistenceStats reports the health of the persistence queue.
type PersistenceStats interface {
	Failures() int
	Dropped() int
}

// ControlService implements ControlServer
type ControlService struct {
	Feeds       FeedManager
	Accounts    AccountStats
	Persistence PersistenceStats
	Logger      *logger.Logger
}

func NewControlService(feeds FeedManager, accounts AccountStats, persistence PersistenceStats, log *logger.Logger) *ControlService {
	return &ControlService{
		Feeds:       feeds,
		Accounts:    accounts,
		Persistence: persistence,
		Logger:      log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListFeeds(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"feeds": s.feedList()})
}

func (s *ControlService) feedList() []interface{} {
	var out []interface{}
	for _, f := range s.Feeds.ListStatus() {
		out = append(out, map[string]interface{}{
			"name":         f.Name,
			"market":       string(f.Market),
			"is_running":   f.IsRunning,
			"is_real_time": f.IsRealTime,
		})
	}
	return out
}

// -----------------------------------------------------------------------------

func (s *ControlService) StartFeed(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "feed name is required")
	}
	if err := s.Feeds.StartFeed(req.GetValue()); err != nil {
		return controlResponse(false, err.Error(), "stopped")
	}
	s.Logger.Info("gRPC: started feed %s", req.GetValue())
	return controlResponse(true, fmt.Sprintf("Started %s", req.GetValue()), "running")
}

func (s *ControlService) StopFeed(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "feed name is required")
	}
	if err := s.Feeds.StopFeed(req.GetValue()); err != nil {
		return controlResponse(false, err.Error(), "unknown")
	}
	s.Logger.Info("gRPC: stopped feed %s", req.GetValue())
	return controlResponse(true, fmt.Sprintf("Stopped %s", req.GetValue()), "stopped")
}

func controlResponse(success bool, message, state string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"success":       success,
		"message":       message,
		"current_state": state,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) LedgerStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	accounts, positions := s.Accounts.Stats()
	fields := map[string]interface{}{
		"accounts":       accounts,
		"open_positions": positions,
		"feeds":          s.feedList(),
	}
	if s.Persistence != nil {
		fields["persistence_failures"] = s.Persistence.Failures()
		fields["persistence_dropped"] = s.Persistence.Dropped()
	}
	return structpb.NewStruct(fields)
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server runs the control service on its own listener.
type Server struct {
	grpcServer *grpc.Server
	logger     *logger.Logger
}

func NewServer(svc ControlServer, log *logger.Logger) *Server {
	gs := grpc.NewServer()
	RegisterControlServer(gs, svc)
	return &Server{grpcServer: gs, logger: log}
}

// Serve blocks until Stop is called or the listener fails.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC Control Server on %s", lis.Addr())
	if err := s.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
