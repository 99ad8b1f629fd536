package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes. Unexpected errors are
// logged and hidden from the caller.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	s.logger.Error(ctx, "request failed", "op", op, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) RegisterAccount(ctx context.Context, req *rpc.RegisterAccountRequest) (*rpc.RegisterAccountResponse, error) {
	acc, token, err := s.accounts.Register(ctx, req.Identifier, req.Relay)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "account_id", acc.ID)
	return &rpc.RegisterAccountResponse{AccountID: acc.ID, AccessToken: token}, nil
}

func (s *GRPCServer) RequestUploadSlot(ctx context.Context, req *rpc.RequestUploadSlotRequest) (*rpc.RequestUploadSlotResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := s.attachments.RequestUploadSlot(ctx, p.AccountID, req.ContentType, req.Size)
	if err != nil {
		return nil, s.toStatus(ctx, "upload slot", err)
	}

	s.logger.Debug(ctx, "Upload slot allocated", "remote_id", slot.RemoteID, "size", req.Size)
	return &rpc.RequestUploadSlotResponse{RemoteID: slot.RemoteID, URL: slot.URL, Fields: slot.Fields}, nil
}

// GetAttachmentURL serves blobs from this relay's bucket only; the relay
// hint is accepted for compatibility and logged.
func (s *GRPCServer) GetAttachmentURL(ctx context.Context, req *rpc.GetAttachmentURLRequest) (*rpc.GetAttachmentURLResponse, error) {
	if req.Relay != "" {
		s.logger.Debug(ctx, "Attachment relay hint ignored", "relay", req.Relay, "remote_id", req.RemoteID)
	}

	url, err := s.attachments.GetURL(ctx, req.RemoteID)
	if err != nil {
		return nil, s.toStatus(ctx, "attachment url", err)
	}
	return &rpc.GetAttachmentURLResponse{URL: url}, nil
}

func (s *GRPCServer) DeliverEnvelope(ctx context.Context, req *rpc.DeliverEnvelopeRequest) (*rpc.DeliverEnvelopeResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.mailbox.Deliver(ctx, p.Identifier, req.Recipient, req.Payload)
	if err != nil {
		return nil, s.toStatus(ctx, "deliver", err)
	}
	return &rpc.DeliverEnvelopeResponse{EnvelopeID: id}, nil
}

func (s *GRPCServer) FetchEnvelopes(ctx context.Context, req *rpc.FetchEnvelopesRequest) (*rpc.FetchEnvelopesResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}

	envs, err := s.mailbox.Fetch(ctx, p.AccountID, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, "fetch", err)
	}

	resp := &rpc.FetchEnvelopesResponse{Envelopes: make([]rpc.Envelope, 0, len(envs))}
	for _, e := range envs {
		resp.Envelopes = append(resp.Envelopes, rpc.Envelope{ID: e.ID, Sender: e.Sender, Payload: e.Payload, CreatedAt: e.CreatedAt})
	}
	return resp, nil
}

func (s *GRPCServer) LookupIdentifier(ctx context.Context, req *rpc.LookupIdentifierRequest) (*rpc.LookupIdentifierResponse, error) {
	ids, err := s.accounts.Lookup(ctx, req.Token)
	if err != nil {
		return nil, s.toStatus(ctx, "lookup", err)
	}
	return &rpc.LookupIdentifierResponse{Identifiers: ids}, nil
}

func (s *GRPCServer) BatchIntersect(ctx context.Context, req *rpc.BatchIntersectRequest) (*rpc.BatchIntersectResponse, error) {
	matches, err := s.accounts.BatchIntersect(ctx, req.Tokens)
	if err != nil {
		return nil, s.toStatus(ctx, "intersect", err)
	}
	return &rpc.BatchIntersectResponse{Matches: matches}, nil
}
