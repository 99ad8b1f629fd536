package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

/*************
 * Fakes
 *************/

type fakeRelay struct {
	rpc.RelayClient

	lastRegister *rpc.RegisterAccountRequest
	lastSlot     *rpc.RequestUploadSlotRequest
	lastURL      *rpc.GetAttachmentURLRequest
	lastDeliver  *rpc.DeliverEnvelopeRequest
	lastLookup   *rpc.LookupIdentifierRequest
	lastBatch    *rpc.BatchIntersectRequest

	registerResp *rpc.RegisterAccountResponse
	registerErr  error
	pingResp     *rpc.PingResponse
	pingErr      error
	slotResp     *rpc.RequestUploadSlotResponse
	slotErr      error
	urlResp      *rpc.GetAttachmentURLResponse
	urlErr       error
	deliverErr   error
	fetchResp    *rpc.FetchEnvelopesResponse
	lookupResp   *rpc.LookupIdentifierResponse
	lookupErr    error
	batchResp    *rpc.BatchIntersectResponse
	batchErr     error
}

func (f *fakeRelay) RegisterAccount(_ context.Context, in *rpc.RegisterAccountRequest, _ ...grpc.CallOption) (*rpc.RegisterAccountResponse, error) {
	f.lastRegister = in
	return f.registerResp, f.registerErr
}

func (f *fakeRelay) Ping(context.Context, *rpc.PingRequest, ...grpc.CallOption) (*rpc.PingResponse, error) {
	return f.pingResp, f.pingErr
}

func (f *fakeRelay) RequestUploadSlot(_ context.Context, in *rpc.RequestUploadSlotRequest, _ ...grpc.CallOption) (*rpc.RequestUploadSlotResponse, error) {
	f.lastSlot = in
	return f.slotResp, f.slotErr
}

func (f *fakeRelay) GetAttachmentURL(_ context.Context, in *rpc.GetAttachmentURLRequest, _ ...grpc.CallOption) (*rpc.GetAttachmentURLResponse, error) {
	f.lastURL = in
	return f.urlResp, f.urlErr
}

func (f *fakeRelay) DeliverEnvelope(_ context.Context, in *rpc.DeliverEnvelopeRequest, _ ...grpc.CallOption) (*rpc.DeliverEnvelopeResponse, error) {
	f.lastDeliver = in
	return &rpc.DeliverEnvelopeResponse{EnvelopeID: "e"}, f.deliverErr
}

func (f *fakeRelay) FetchEnvelopes(context.Context, *rpc.FetchEnvelopesRequest, ...grpc.CallOption) (*rpc.FetchEnvelopesResponse, error) {
	return f.fetchResp, nil
}

func (f *fakeRelay) LookupIdentifier(_ context.Context, in *rpc.LookupIdentifierRequest, _ ...grpc.CallOption) (*rpc.LookupIdentifierResponse, error) {
	f.lastLookup = in
	return f.lookupResp, f.lookupErr
}

func (f *fakeRelay) BatchIntersect(_ context.Context, in *rpc.BatchIntersectRequest, _ ...grpc.CallOption) (*rpc.BatchIntersectResponse, error) {
	f.lastBatch = in
	return f.batchResp, f.batchErr
}

type fakeBlobs struct {
	putURL     string
	putHeaders map[string]string
	putData    []byte
	putErr     error
	getURL     string
	getData    []byte
	getErr     error
}

func (b *fakeBlobs) Put(_ context.Context, url string, headers map[string]string, data []byte) error {
	b.putURL, b.putHeaders, b.putData = url, headers, data
	return b.putErr
}

func (b *fakeBlobs) Get(_ context.Context, url string) ([]byte, error) {
	b.getURL = url
	return b.getData, b.getErr
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_ReRegistersOnExpiredAndRetries(t *testing.T) {
	f := &fakeRelay{registerResp: &rpc.RegisterAccountResponse{AccessToken: "A2"}}
	c := &GRPCClient{client: f}
	c.SetSession("+100", "r1", "A1")

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		md, _ := metadata.FromOutgoingContext(ctx)
		toks := md.Get(common.AccessTokenHeaderName)
		require.Len(t, toks, 1)

		if callCount == 1 {
			require.Equal(t, "A1", toks[0])
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		require.Equal(t, "A2", toks[0])
		return nil
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.MethodDeliverEnvelope, nil, nil, nil, invoker)
	require.NoError(t, err)
	require.Equal(t, 2, callCount)
	require.Equal(t, "A2", c.token())
	require.Equal(t, "+100", f.lastRegister.Identifier)
	require.Equal(t, "r1", f.lastRegister.Relay)
}

func TestInterceptor_NoRenewWithoutIdentity(t *testing.T) {
	f := &fakeRelay{}
	c := &GRPCClient{client: f, accessToken: "A1"}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.MethodDeliverEnvelope, nil, nil, nil, invoker)
	require.Error(t, err)
	require.Nil(t, f.lastRegister)
}

func TestInterceptor_IgnoresOtherErrors(t *testing.T) {
	c := &GRPCClient{accessToken: "X", identifier: "+1"}
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "some other reason")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.MethodBatchIntersect, nil, nil, nil, invoker)
	require.Error(t, err)
}

func TestInterceptor_ExemptMethodsCarryNoToken(t *testing.T) {
	c := &GRPCClient{accessToken: "X"}
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		assert.Empty(t, md.Get(common.AccessTokenHeaderName))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), rpc.MethodRegisterAccount, nil, nil, nil, invoker))
	require.NoError(t, c.accessTokenInterceptor(context.Background(), rpc.MethodPing, nil, nil, nil, invoker))
}

/*************
 * mapError tests
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	var nf *common.NotFoundError
	require.ErrorAs(t, c.mapError("lookup", status.Error(codes.NotFound, "x")), &nf)
	assert.Equal(t, common.NotFoundCode, nf.Code)

	err := c.mapError("op", status.Error(codes.Unauthenticated, "x"))
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.ErrorIs(t, err, common.ErrTransport)

	require.ErrorIs(t, c.mapError("op", status.Error(codes.PermissionDenied, "x")), common.ErrUnauthorized)
	require.ErrorIs(t, c.mapError("op", status.Error(codes.Unavailable, "x")), common.ErrUnavailable)
	require.ErrorIs(t, c.mapError("op", status.Error(codes.DeadlineExceeded, "x")), common.ErrUnavailable)
	require.ErrorIs(t, c.mapError("op", status.Error(codes.InvalidArgument, "x")), common.ErrInvalidArgument)

	err = c.mapError("op", errors.New("plain"))
	require.ErrorIs(t, err, common.ErrTransport)
	require.NotErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, c.mapError("op", nil))
}

/*************
 * Call tests
 *************/

func TestPing(t *testing.T) {
	c := &GRPCClient{client: &fakeRelay{pingResp: &rpc.PingResponse{Status: "OK"}}}
	require.NoError(t, c.Ping(context.Background()))

	c = &GRPCClient{client: &fakeRelay{pingResp: &rpc.PingResponse{Status: "NOT_OK"}}}
	require.ErrorIs(t, c.Ping(context.Background()), common.ErrUnavailable)

	c = &GRPCClient{client: &fakeRelay{pingErr: status.Error(codes.Unavailable, "down")}}
	require.ErrorIs(t, c.Ping(context.Background()), common.ErrTransport)
}

func TestRegister_StoresSession(t *testing.T) {
	f := &fakeRelay{registerResp: &rpc.RegisterAccountResponse{AccessToken: "T", AccountID: "acc"}}
	c := &GRPCClient{client: f, timeout: time.Second}

	tok, err := c.Register(context.Background(), "+100", "relay-a")
	require.NoError(t, err)
	assert.Equal(t, "T", tok)
	assert.Equal(t, "T", c.token())
	assert.Equal(t, "+100", c.identifier)
}

func TestRequestUploadSlotAndPut(t *testing.T) {
	f := &fakeRelay{slotResp: &rpc.RequestUploadSlotResponse{RemoteID: 42, URL: "https://s3/put", Fields: map[string]string{"Content-Type": "image/jpeg"}}}
	b := &fakeBlobs{}
	c := &GRPCClient{client: f, blobs: b}

	slot, err := c.RequestUploadSlot(context.Background(), "image/jpeg", 38)
	require.NoError(t, err)
	assert.EqualValues(t, 42, slot.RemoteID)
	assert.Equal(t, int64(38), f.lastSlot.Size)

	require.NoError(t, c.PutBytes(context.Background(), slot, []byte("ct")))
	assert.Equal(t, "https://s3/put", b.putURL)
	assert.Equal(t, "image/jpeg", b.putHeaders["Content-Type"])
	assert.Equal(t, []byte("ct"), b.putData)

	require.ErrorIs(t, c.PutBytes(context.Background(), nil, nil), common.ErrInvalidArgument)
}

func TestPutBytes_ReturnsBlobErrorUnmodified(t *testing.T) {
	want := &common.TransportError{Op: "blob put", Err: errors.New("reset")}
	c := &GRPCClient{blobs: &fakeBlobs{putErr: want}}

	err := c.PutBytes(context.Background(), &UploadSlot{URL: "u"}, nil)
	require.Same(t, want, err)
}

func TestGetBytes_ResolvesURLThenDownloads(t *testing.T) {
	f := &fakeRelay{urlResp: &rpc.GetAttachmentURLResponse{URL: "https://s3/get"}}
	b := &fakeBlobs{getData: []byte("cipher")}
	c := &GRPCClient{client: f, blobs: b}

	got, err := c.GetBytes(context.Background(), 7, "relay-b")
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher"), got)
	assert.EqualValues(t, 7, f.lastURL.RemoteID)
	assert.Equal(t, "relay-b", f.lastURL.Relay)
	assert.Equal(t, "https://s3/get", b.getURL)
}

func TestGetBytes_UnknownRemoteIDIsNotFound(t *testing.T) {
	c := &GRPCClient{client: &fakeRelay{urlErr: status.Error(codes.NotFound, "x")}, blobs: &fakeBlobs{}}
	_, err := c.GetBytes(context.Background(), 7, "")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeliverEnvelope(t *testing.T) {
	f := &fakeRelay{}
	c := &GRPCClient{client: f}
	require.NoError(t, c.DeliverEnvelope(context.Background(), "+2", []byte("sealed")))
	assert.Equal(t, "+2", f.lastDeliver.Recipient)

	f.deliverErr = status.Error(codes.Unavailable, "x")
	require.ErrorIs(t, c.DeliverEnvelope(context.Background(), "+2", nil), common.ErrTransport)
}

func TestFetchEnvelopes_MapsMessages(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeRelay{fetchResp: &rpc.FetchEnvelopesResponse{Envelopes: []rpc.Envelope{{ID: "1", Sender: "+9", Payload: []byte("p"), CreatedAt: now}}}}
	c := &GRPCClient{client: f}

	got, err := c.FetchEnvelopes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, InboundEnvelope{ID: "1", Sender: "+9", Payload: []byte("p"), CreatedAt: now}, got[0])
}

func TestLookupAndBatch(t *testing.T) {
	f := &fakeRelay{
		lookupResp: &rpc.LookupIdentifierResponse{Identifiers: []string{"+5"}},
		batchResp:  &rpc.BatchIntersectResponse{},
	}
	c := &GRPCClient{client: f}

	ids, err := c.LookupRegisteredIdentifier(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"+5"}, ids)
	assert.Equal(t, "tok", f.lastLookup.Token)

	m, err := c.BatchIntersect(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)

	f.lookupErr = status.Error(codes.NotFound, "nope")
	_, err = c.LookupRegisteredIdentifier(context.Background(), "tok")
	var nf *common.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.NotErrorIs(t, err, common.ErrTransport)
}
