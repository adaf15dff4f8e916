package types

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const (
	PaymentsService_ServiceName = "lmspayments.PaymentsService"

	PaymentsService_Health_FullMethodName          = "/lmspayments.PaymentsService/Health"
	PaymentsService_CreateCheckout_FullMethodName  = "/lmspayments.PaymentsService/CreateCheckout"
	PaymentsService_GetPayment_FullMethodName      = "/lmspayments.PaymentsService/GetPayment"
	PaymentsService_ListPayments_FullMethodName    = "/lmspayments.PaymentsService/ListPayments"
	PaymentsService_ListEnrollments_FullMethodName = "/lmspayments.PaymentsService/ListEnrollments"
	PaymentsService_ConfirmPayment_FullMethodName  = "/lmspayments.PaymentsService/ConfirmPayment"
	PaymentsService_RejectPayment_FullMethodName   = "/lmspayments.PaymentsService/RejectPayment"
)

// JSONCodecName is the gRPC content-subtype for the JSON message codec.
// Clients select it with grpc.CallContentSubtype(JSONCodecName).
const JSONCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return JSONCodecName
}

type PaymentsServiceServer interface {
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
	CreateCheckout(context.Context, *CreateCheckoutRequest) (*PaymentEnvelopeResponse, error)
	GetPayment(context.Context, *GetPaymentRequest) (*PaymentEnvelopeResponse, error)
	ListPayments(context.Context, *ListPaymentsRequest) (*ListPaymentsResponse, error)
	ListEnrollments(context.Context, *ListEnrollmentsRequest) (*ListEnrollmentsResponse, error)
	ConfirmPayment(context.Context, *ConfirmPaymentRequest) (*ReconcileResponse, error)
	RejectPayment(context.Context, *RejectPaymentRequest) (*ReconcileResponse, error)
}

// UnimplementedPaymentsServiceServer can be embedded for forward compatibility.
type UnimplementedPaymentsServiceServer struct{}

func (UnimplementedPaymentsServiceServer) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func (UnimplementedPaymentsServiceServer) CreateCheckout(context.Context, *CreateCheckoutRequest) (*PaymentEnvelopeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateCheckout not implemented")
}

func (UnimplementedPaymentsServiceServer) GetPayment(context.Context, *GetPaymentRequest) (*PaymentEnvelopeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPayment not implemented")
}

func (UnimplementedPaymentsServiceServer) ListPayments(context.Context, *ListPaymentsRequest) (*ListPaymentsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPayments not implemented")
}

func (UnimplementedPaymentsServiceServer) ListEnrollments(context.Context, *ListEnrollmentsRequest) (*ListEnrollmentsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEnrollments not implemented")
}

func (UnimplementedPaymentsServiceServer) ConfirmPayment(context.Context, *ConfirmPaymentRequest) (*ReconcileResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ConfirmPayment not implemented")
}

func (UnimplementedPaymentsServiceServer) RejectPayment(context.Context, *RejectPaymentRequest) (*ReconcileResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RejectPayment not implemented")
}

func RegisterPaymentsServiceServer(s grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	s.RegisterService(&PaymentsService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](fullMethod string, call func(PaymentsServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PaymentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PaymentsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var PaymentsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PaymentsService_ServiceName,
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Health",
			Handler:    unaryHandler(PaymentsService_Health_FullMethodName, PaymentsServiceServer.Health),
		},
		{
			MethodName: "CreateCheckout",
			Handler:    unaryHandler(PaymentsService_CreateCheckout_FullMethodName, PaymentsServiceServer.CreateCheckout),
		},
		{
			MethodName: "GetPayment",
			Handler:    unaryHandler(PaymentsService_GetPayment_FullMethodName, PaymentsServiceServer.GetPayment),
		},
		{
			MethodName: "ListPayments",
			Handler:    unaryHandler(PaymentsService_ListPayments_FullMethodName, PaymentsServiceServer.ListPayments),
		},
		{
			MethodName: "ListEnrollments",
			Handler:    unaryHandler(PaymentsService_ListEnrollments_FullMethodName, PaymentsServiceServer.ListEnrollments),
		},
		{
			MethodName: "ConfirmPayment",
			Handler:    unaryHandler(PaymentsService_ConfirmPayment_FullMethodName, PaymentsServiceServer.ConfirmPayment),
		},
		{
			MethodName: "RejectPayment",
			Handler:    unaryHandler(PaymentsService_RejectPayment_FullMethodName, PaymentsServiceServer.RejectPayment),
		},
	},
	Streams: []grpc.StreamDesc{},
}

type PaymentsServiceClient interface {
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
	CreateCheckout(ctx context.Context, in *CreateCheckoutRequest, opts ...grpc.CallOption) (*PaymentEnvelopeResponse, error)
	GetPayment(ctx context.Context, in *GetPaymentRequest, opts ...grpc.CallOption) (*PaymentEnvelopeResponse, error)
	ListPayments(ctx context.Context, in *ListPaymentsRequest, opts ...grpc.CallOption) (*ListPaymentsResponse, error)
	ListEnrollments(ctx context.Context, in *ListEnrollmentsRequest, opts ...grpc.CallOption) (*ListEnrollmentsResponse, error)
	ConfirmPayment(ctx context.Context, in *ConfirmPaymentRequest, opts ...grpc.CallOption) (*ReconcileResponse, error)
	RejectPayment(ctx context.Context, in *RejectPaymentRequest, opts ...grpc.CallOption) (*ReconcileResponse, error)
}

type paymentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPaymentsServiceClient(cc grpc.ClientConnInterface) PaymentsServiceClient {
	return &paymentsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentsServiceClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c.cc, PaymentsService_Health_FullMethodName, in, opts)
}

func (c *paymentsServiceClient) CreateCheckout(ctx context.Context, in *CreateCheckoutRequest, opts ...grpc.CallOption) (*PaymentEnvelopeResponse, error) {
	return invoke[PaymentEnvelopeResponse](ctx, c.cc, PaymentsService_CreateCheckout_FullMethodName, in, opts)
}

func (c *paymentsServiceClient) GetPayment(ctx context.Context, in *GetPaymentRequest, opts ...grpc.CallOption) (*PaymentEnvelopeResponse, error) {
	return invoke[PaymentEnvelopeResponse](ctx, c.cc, PaymentsService_GetPayment_FullMethodName, in, opts)
}

func (c *paymentsServiceClient) ListPayments(ctx context.Context, in *ListPaymentsRequest, opts ...grpc.CallOption) (*ListPaymentsResponse, error) {
	return invoke[ListPaymentsResponse](ctx, c.cc, PaymentsService_ListPayments_FullMethodName, in, opts)
}

func (c *paymentsServiceClient) ListEnrollments(ctx context.Context, in *ListEnrollmentsRequest, opts ...grpc.CallOption) (*ListEnrollmentsResponse, error) {
	return invoke[ListEnrollmentsResponse](ctx, c.cc, PaymentsService_ListEnrollments_FullMethodName, in, opts)
}

func (c *paymentsServiceClient) ConfirmPayment(ctx context.Context, in *ConfirmPaymentRequest, opts ...grpc.CallOption) (*ReconcileResponse, error) {
	return invoke[ReconcileResponse](ctx, c.cc, PaymentsService_ConfirmPayment_FullMethodName, in, opts)
}

func (c *paymentsServiceClient) RejectPayment(ctx context.Context, in *RejectPaymentRequest, opts ...grpc.CallOption) (*ReconcileResponse, error) {
	return invoke[ReconcileResponse](ctx, c.cc, PaymentsService_RejectPayment_FullMethodName, in, opts)
}
