package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// BlobIO moves bytes to and from presigned URLs.
type BlobIO interface {
	Put(ctx context.Context, url string, headers map[string]string, data []byte) error
	Get(ctx context.Context, url string) ([]byte, error)
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      rpc.RelayClient
	blobs       BlobIO

	mu          sync.RWMutex
	identifier  string
	relay       string
	accessToken string
}

var _ Transport = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// accessTokenInterceptor attaches the access token. An expired token is
// renewed once by re-registering the same identifier and the call retried.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == rpc.MethodRegisterAccount || method == rpc.MethodPing {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	s.mu.RLock()
	identifier, relay := s.identifier, s.relay
	s.mu.RUnlock()
	if identifier == "" {
		return err
	}

	resp, rerr := s.client.RegisterAccount(ctx, &rpc.RegisterAccountRequest{Identifier: identifier, Relay: relay})
	if rerr != nil {
		return rerr
	}
	s.SetSession(identifier, relay, resp.AccessToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient connects to the relay at endpointURL. timeout bounds every
// single network step.
func NewGRPCClient(endpointURL string, timeout time.Duration, blobs BlobIO) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout, blobs: blobs}
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewRelayClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// SetSession restores a previously registered identity.
func (s *GRPCClient) SetSession(identifier, relay, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identifier, s.relay, s.accessToken = identifier, relay, accessToken
}

func (s *GRPCClient) step(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Register creates (or refreshes) the account for identifier and keeps the
// returned access token. It returns the token for persistence.
func (s *GRPCClient) Register(ctx context.Context, identifier, relay string) (string, error) {
	ctx, cancel := s.step(ctx)
	defer cancel()

	resp, err := s.client.RegisterAccount(ctx, &rpc.RegisterAccountRequest{Identifier: identifier, Relay: relay})
	if err != nil {
		return "", s.mapError("register", err)
	}
	s.SetSession(identifier, relay, resp.AccessToken)
	return resp.AccessToken, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.step(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError("ping", err)
	}
	if resp.Status != "OK" {
		return &common.TransportError{Op: "ping", Err: common.ErrUnavailable}
	}
	return nil
}

func (s *GRPCClient) RequestUploadSlot(ctx context.Context, contentType string, size int64) (*UploadSlot, error) {
	ctx, cancel := s.step(ctx)
	defer cancel()

	resp, err := s.client.RequestUploadSlot(ctx, &rpc.RequestUploadSlotRequest{ContentType: contentType, Size: size})
	if err != nil {
		return nil, s.mapError("request upload slot", err)
	}
	return &UploadSlot{RemoteID: resp.RemoteID, URL: resp.URL, Fields: resp.Fields}, nil
}

func (s *GRPCClient) PutBytes(ctx context.Context, slot *UploadSlot, ciphertext []byte) error {
	if slot == nil {
		return fmt.Errorf("%w: nil upload slot", common.ErrInvalidArgument)
	}
	ctx, cancel := s.step(ctx)
	defer cancel()

	return s.blobs.Put(ctx, slot.URL, slot.Fields, ciphertext)
}

func (s *GRPCClient) GetBytes(ctx context.Context, remoteID uint64, relay string) ([]byte, error) {
	uctx, cancel := s.step(ctx)
	resp, err := s.client.GetAttachmentURL(uctx, &rpc.GetAttachmentURLRequest{RemoteID: remoteID, Relay: relay})
	cancel()
	if err != nil {
		return nil, s.mapError("get attachment url", err)
	}

	ctx, cancel = s.step(ctx)
	defer cancel()
	return s.blobs.Get(ctx, resp.URL)
}

func (s *GRPCClient) DeliverEnvelope(ctx context.Context, recipient string, envelope []byte) error {
	ctx, cancel := s.step(ctx)
	defer cancel()

	_, err := s.client.DeliverEnvelope(ctx, &rpc.DeliverEnvelopeRequest{Recipient: recipient, Payload: envelope})
	if err != nil {
		return s.mapError("deliver to "+recipient, err)
	}
	return nil
}

// FetchEnvelopes drains up to limit envelopes from the mailbox.
func (s *GRPCClient) FetchEnvelopes(ctx context.Context, limit int) ([]InboundEnvelope, error) {
	ctx, cancel := s.step(ctx)
	defer cancel()

	resp, err := s.client.FetchEnvelopes(ctx, &rpc.FetchEnvelopesRequest{Limit: limit})
	if err != nil {
		return nil, s.mapError("fetch envelopes", err)
	}
	out := make([]InboundEnvelope, 0, len(resp.Envelopes))
	for _, e := range resp.Envelopes {
		out = append(out, InboundEnvelope{ID: e.ID, Sender: e.Sender, Payload: e.Payload, CreatedAt: e.CreatedAt})
	}
	return out, nil
}

func (s *GRPCClient) LookupRegisteredIdentifier(ctx context.Context, token string) ([]string, error) {
	ctx, cancel := s.step(ctx)
	defer cancel()

	resp, err := s.client.LookupIdentifier(ctx, &rpc.LookupIdentifierRequest{Token: token})
	if err != nil {
		return nil, s.mapError("lookup identifier", err)
	}
	return resp.Identifiers, nil
}

func (s *GRPCClient) BatchIntersect(ctx context.Context, tokens []string) (map[string][]string, error) {
	ctx, cancel := s.step(ctx)
	defer cancel()

	resp, err := s.client.BatchIntersect(ctx, &rpc.BatchIntersectRequest{Tokens: tokens})
	if err != nil {
		return nil, s.mapError("batch intersect", err)
	}
	if resp.Matches == nil {
		return map[string][]string{}, nil
	}
	return resp.Matches, nil
}

func (s *GRPCClient) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &common.TransportError{Op: op, Err: err}
	}
	st, ok := status.FromError(err)
	if !ok {
		return &common.TransportError{Op: op, Err: err}
	}
	switch st.Code() {
	case codes.NotFound:
		return common.NewNotFoundError(op)
	case codes.Unauthenticated, codes.PermissionDenied:
		return &common.TransportError{Op: op, Err: common.ErrUnauthorized}
	case codes.Unavailable, codes.DeadlineExceeded:
		return &common.TransportError{Op: op, Err: common.ErrUnavailable}
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %s", op, common.ErrInvalidArgument, st.Message())
	default:
		return &common.TransportError{Op: op, Err: fmt.Errorf("rpc error: %w", err)}
	}
}
