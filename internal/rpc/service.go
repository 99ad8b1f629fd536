package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified name of the Relay service.
const ServiceName = "courier.v1.Relay"

const (
	MethodPing              = "/" + ServiceName + "/Ping"
	MethodRegisterAccount   = "/" + ServiceName + "/RegisterAccount"
	MethodRequestUploadSlot = "/" + ServiceName + "/RequestUploadSlot"
	MethodGetAttachmentURL  = "/" + ServiceName + "/GetAttachmentURL"
	MethodDeliverEnvelope   = "/" + ServiceName + "/DeliverEnvelope"
	MethodFetchEnvelopes    = "/" + ServiceName + "/FetchEnvelopes"
	MethodLookupIdentifier  = "/" + ServiceName + "/LookupIdentifier"
	MethodBatchIntersect    = "/" + ServiceName + "/BatchIntersect"
)

// RelayClient is the client API for Relay service.
//
// For semantics around ctx use and closing/ending streaming RPCs, please refer to https://pkg.go.dev/google.golang.org/grpc/?tab=doc#ClientConn.NewStream.
type RelayClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	RegisterAccount(ctx context.Context, in *RegisterAccountRequest, opts ...grpc.CallOption) (*RegisterAccountResponse, error)
	RequestUploadSlot(ctx context.Context, in *RequestUploadSlotRequest, opts ...grpc.CallOption) (*RequestUploadSlotResponse, error)
	GetAttachmentURL(ctx context.Context, in *GetAttachmentURLRequest, opts ...grpc.CallOption) (*GetAttachmentURLResponse, error)
	DeliverEnvelope(ctx context.Context, in *DeliverEnvelopeRequest, opts ...grpc.CallOption) (*DeliverEnvelopeResponse, error)
	FetchEnvelopes(ctx context.Context, in *FetchEnvelopesRequest, opts ...grpc.CallOption) (*FetchEnvelopesResponse, error)
	LookupIdentifier(ctx context.Context, in *LookupIdentifierRequest, opts ...grpc.CallOption) (*LookupIdentifierResponse, error)
	BatchIntersect(ctx context.Context, in *BatchIntersectRequest, opts ...grpc.CallOption) (*BatchIntersectResponse, error)
}

type relayClient struct {
	cc grpc.ClientConnInterface
}

func NewRelayClient(cc grpc.ClientConnInterface) RelayClient {
	return &relayClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *relayClient) RegisterAccount(ctx context.Context, in *RegisterAccountRequest, opts ...grpc.CallOption) (*RegisterAccountResponse, error) {
	return invoke[RegisterAccountResponse](ctx, c.cc, MethodRegisterAccount, in, opts)
}

func (c *relayClient) RequestUploadSlot(ctx context.Context, in *RequestUploadSlotRequest, opts ...grpc.CallOption) (*RequestUploadSlotResponse, error) {
	return invoke[RequestUploadSlotResponse](ctx, c.cc, MethodRequestUploadSlot, in, opts)
}

func (c *relayClient) GetAttachmentURL(ctx context.Context, in *GetAttachmentURLRequest, opts ...grpc.CallOption) (*GetAttachmentURLResponse, error) {
	return invoke[GetAttachmentURLResponse](ctx, c.cc, MethodGetAttachmentURL, in, opts)
}

func (c *relayClient) DeliverEnvelope(ctx context.Context, in *DeliverEnvelopeRequest, opts ...grpc.CallOption) (*DeliverEnvelopeResponse, error) {
	return invoke[DeliverEnvelopeResponse](ctx, c.cc, MethodDeliverEnvelope, in, opts)
}

func (c *relayClient) FetchEnvelopes(ctx context.Context, in *FetchEnvelopesRequest, opts ...grpc.CallOption) (*FetchEnvelopesResponse, error) {
	return invoke[FetchEnvelopesResponse](ctx, c.cc, MethodFetchEnvelopes, in, opts)
}

func (c *relayClient) LookupIdentifier(ctx context.Context, in *LookupIdentifierRequest, opts ...grpc.CallOption) (*LookupIdentifierResponse, error) {
	return invoke[LookupIdentifierResponse](ctx, c.cc, MethodLookupIdentifier, in, opts)
}

func (c *relayClient) BatchIntersect(ctx context.Context, in *BatchIntersectRequest, opts ...grpc.CallOption) (*BatchIntersectResponse, error) {
	return invoke[BatchIntersectResponse](ctx, c.cc, MethodBatchIntersect, in, opts)
}

// RelayServer is the server API for Relay service.
// Implementations should embed UnimplementedRelayServer for forward compatibility.
type RelayServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	RegisterAccount(context.Context, *RegisterAccountRequest) (*RegisterAccountResponse, error)
	RequestUploadSlot(context.Context, *RequestUploadSlotRequest) (*RequestUploadSlotResponse, error)
	GetAttachmentURL(context.Context, *GetAttachmentURLRequest) (*GetAttachmentURLResponse, error)
	DeliverEnvelope(context.Context, *DeliverEnvelopeRequest) (*DeliverEnvelopeResponse, error)
	FetchEnvelopes(context.Context, *FetchEnvelopesRequest) (*FetchEnvelopesResponse, error)
	LookupIdentifier(context.Context, *LookupIdentifierRequest) (*LookupIdentifierResponse, error)
	BatchIntersect(context.Context, *BatchIntersectRequest) (*BatchIntersectResponse, error)
}

// UnimplementedRelayServer should be embedded to have forward compatible implementations.
type UnimplementedRelayServer struct{}

func (UnimplementedRelayServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedRelayServer) RegisterAccount(context.Context, *RegisterAccountRequest) (*RegisterAccountResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RegisterAccount not implemented")
}
func (UnimplementedRelayServer) RequestUploadSlot(context.Context, *RequestUploadSlotRequest) (*RequestUploadSlotResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RequestUploadSlot not implemented")
}
func (UnimplementedRelayServer) GetAttachmentURL(context.Context, *GetAttachmentURLRequest) (*GetAttachmentURLResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetAttachmentURL not implemented")
}
func (UnimplementedRelayServer) DeliverEnvelope(context.Context, *DeliverEnvelopeRequest) (*DeliverEnvelopeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeliverEnvelope not implemented")
}
func (UnimplementedRelayServer) FetchEnvelopes(context.Context, *FetchEnvelopesRequest) (*FetchEnvelopesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FetchEnvelopes not implemented")
}
func (UnimplementedRelayServer) LookupIdentifier(context.Context, *LookupIdentifierRequest) (*LookupIdentifierResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LookupIdentifier not implemented")
}
func (UnimplementedRelayServer) BatchIntersect(context.Context, *BatchIntersectRequest) (*BatchIntersectResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BatchIntersect not implemented")
}

func unaryHandler[Req any, Resp any](method string, call func(RelayServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RelayServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Relay_ServiceDesc is the grpc.ServiceDesc for Relay service.
// It's only intended for direct use with grpc.RegisterService,
// and not to be introspected or modified (even as a copy)
var Relay_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, RelayServer.Ping)},
		{MethodName: "RegisterAccount", Handler: unaryHandler(MethodRegisterAccount, RelayServer.RegisterAccount)},
		{MethodName: "RequestUploadSlot", Handler: unaryHandler(MethodRequestUploadSlot, RelayServer.RequestUploadSlot)},
		{MethodName: "GetAttachmentURL", Handler: unaryHandler(MethodGetAttachmentURL, RelayServer.GetAttachmentURL)},
		{MethodName: "DeliverEnvelope", Handler: unaryHandler(MethodDeliverEnvelope, RelayServer.DeliverEnvelope)},
		{MethodName: "FetchEnvelopes", Handler: unaryHandler(MethodFetchEnvelopes, RelayServer.FetchEnvelopes)},
		{MethodName: "LookupIdentifier", Handler: unaryHandler(MethodLookupIdentifier, RelayServer.LookupIdentifier)},
		{MethodName: "BatchIntersect", Handler: unaryHandler(MethodBatchIntersect, RelayServer.BatchIntersect)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "courier/v1/relay",
}

func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&Relay_ServiceDesc, srv)
}
