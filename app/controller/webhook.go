package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lms-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lms-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lms-payments/app/service"
	"github.com/vibast-solutions/ms-go-lms-payments/app/types"
)

const maxCallbackBodyBytes = 1 << 20

// HandleProviderCallback answers the provider webhook. Replays and unknown
// references get 200 so the provider stops retrying; authentication failures
// get 401 and carry no detail.
func (c *PaymentController) HandleProviderCallback(ctx echo.Context) error {
	req, err := types.NewProviderCallbackRequestFromContext(ctx, maxCallbackBodyBytes)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.HandleProviderCallback(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCallbackUnauthorized):
			return c.writeError(ctx, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, service.ErrCallbackMalformed), errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, "malformed notification")
		case errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusNotFound, "unknown provider")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle provider callback failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	if result.Outcome == service.OutcomeAmountMismatch {
		return ctx.JSON(http.StatusBadRequest, &types.ReconcileResponse{
			Message: mapper.OutcomeMessage(result.Outcome),
			Outcome: string(result.Outcome),
		})
	}

	return ctx.JSON(http.StatusOK, &types.ReconcileResponse{
		Message:          mapper.OutcomeMessage(result.Outcome),
		Outcome:          string(result.Outcome),
		EnrollmentAction: string(result.EnrollmentAction),
	})
}
