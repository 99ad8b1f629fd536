// Package grpc exposes the relay services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/courier/internal/logging"
	"github.com/dmitrijs2005/courier/internal/rpc"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/dmitrijs2005/courier/internal/server/services"
	"google.golang.org/grpc"
)

type accountService interface {
	Register(ctx context.Context, identifier, relay string) (*models.Account, string, error)
	Lookup(ctx context.Context, token string) ([]string, error)
	BatchIntersect(ctx context.Context, tokens []string) (map[string][]string, error)
}

type attachmentService interface {
	RequestUploadSlot(ctx context.Context, ownerID, contentType string, size int64) (*services.UploadSlot, error)
	GetURL(ctx context.Context, remoteID uint64) (string, error)
}

type mailboxService interface {
	Deliver(ctx context.Context, sender, recipient string, payload []byte) (string, error)
	Fetch(ctx context.Context, accountID string, limit int) ([]*models.Envelope, error)
}

type GRPCServer struct {
	rpc.UnimplementedRelayServer
	address     string
	accounts    accountService
	attachments attachmentService
	mailbox     mailboxService
	logger      logging.Logger
	jwtSecret   []byte
}

func NewGRPCServer(a string, l logging.Logger, as accountService, ts attachmentService, ms mailboxService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		accounts:    as,
		attachments: ts,
		mailbox:     ms,
		jwtSecret:   []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	rpc.RegisterRelayServer(srv, s)
	return srv
}

// Run serves until ctx is done, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())
	return srv.Serve(listen)
}
