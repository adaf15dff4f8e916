package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-lms-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lms-payments/app/service"
	"github.com/vibast-solutions/ms-go-lms-payments/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server exposes the internal payments API over gRPC. Provider webhooks are
// HTTP only.
type Server struct {
	types.UnimplementedPaymentsServiceServer
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreateCheckout(ctx context.Context, req *types.CreateCheckoutRequest) (*types.PaymentEnvelopeResponse, error) {
	l := loggerWithContext(ctx)
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Create checkout validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.CreateCheckout(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, service.ErrAlreadyEnrolled), errors.Is(err, service.ErrPaymentAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, service.ErrProviderFailure):
			l.WithError(err).Warn("Checkout invoice creation failed")
			return nil, status.Error(codes.Unavailable, "payment provider unavailable")
		default:
			l.WithError(err).Error("Create checkout failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToTransport(item)}, nil
}

func (s *Server) GetPayment(ctx context.Context, req *types.GetPaymentRequest) (*types.PaymentEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.GetPayment(ctx, req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return nil, status.Error(codes.NotFound, "payment not found")
		}
		loggerWithContext(ctx).WithError(err).Error("Get payment failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToTransport(item)}, nil
}

func (s *Server) ListPayments(ctx context.Context, req *types.ListPaymentsRequest) (*types.ListPaymentsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.paymentService.ListPayments(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		loggerWithContext(ctx).WithError(err).Error("List payments failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return &types.ListPaymentsResponse{Payments: mapper.PaymentsToTransport(items)}, nil
}

func (s *Server) ListEnrollments(ctx context.Context, req *types.ListEnrollmentsRequest) (*types.ListEnrollmentsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.paymentService.ListEnrollments(ctx, req)
	if err != nil {
		loggerWithContext(ctx).WithError(err).Error("List enrollments failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return &types.ListEnrollmentsResponse{Enrollments: mapper.EnrollmentsToTransport(items)}, nil
}

// ConfirmPayment trusts the admin ref supplied by the internal caller; the
// internal-access interceptor has already authenticated it.
func (s *Server) ConfirmPayment(ctx context.Context, req *types.ConfirmPaymentRequest) (*types.ReconcileResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.paymentService.ConfirmPayment(ctx, req.GetId(), req.GetAdminRef())
	if err != nil {
		return nil, manualStatusError(ctx, err, "Confirm payment failed")
	}

	return mapper.ReconcileResultToTransport(result), nil
}

func (s *Server) RejectPayment(ctx context.Context, req *types.RejectPaymentRequest) (*types.ReconcileResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.paymentService.RejectPayment(ctx, req.GetId(), req.GetAdminRef())
	if err != nil {
		return nil, manualStatusError(ctx, err, "Reject payment failed")
	}

	return mapper.ReconcileResultToTransport(result), nil
}

func manualStatusError(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPaymentNotFound):
		return status.Error(codes.NotFound, "payment not found")
	case errors.Is(err, service.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}
