package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lms-payments/app/auth"
	"github.com/vibast-solutions/ms-go-lms-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lms-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lms-payments/app/service"
	"github.com/vibast-solutions/ms-go-lms-payments/app/types"
)

// ConfirmPayment settles a pending payment on an operator's word. The route
// sits behind auth.AdminTokens.RequireAdmin, which supplies the admin ref.
func (c *PaymentController) ConfirmPayment(ctx echo.Context) error {
	req, err := types.NewConfirmPaymentRequestFromContext(ctx, auth.AdminRefFromContext(ctx))
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.ConfirmPayment(ctx.Request().Context(), req.GetId(), req.GetAdminRef())
	if err != nil {
		return c.writeManualError(ctx, err, "Confirm payment failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ReconcileResultToTransport(result))
}

func (c *PaymentController) RejectPayment(ctx echo.Context) error {
	req, err := types.NewRejectPaymentRequestFromContext(ctx, auth.AdminRefFromContext(ctx))
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.RejectPayment(ctx.Request().Context(), req.GetId(), req.GetAdminRef())
	if err != nil {
		return c.writeManualError(ctx, err, "Reject payment failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ReconcileResultToTransport(result))
}

func (c *PaymentController) writeManualError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPaymentNotFound):
		return c.writeError(ctx, http.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrInvalidState):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
