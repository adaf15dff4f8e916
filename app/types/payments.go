package types

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500

	// Xendit sends the shared verification token in this header.
	CallbackTokenHeader = "X-Callback-Token"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func NewCreateCheckoutRequestFromContext(ctx echo.Context) (*CreateCheckoutRequest, error) {
	var body CreateCheckoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.PayerEmail = strings.TrimSpace(body.PayerEmail)
	body.Description = strings.TrimSpace(body.Description)
	body.SuccessUrl = strings.TrimSpace(body.SuccessUrl)
	body.FailureUrl = strings.TrimSpace(body.FailureUrl)
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))

	return &body, nil
}

func (r *CreateCheckoutRequest) Validate() error {
	if r == nil {
		return errors.New("request is required")
	}
	return validationError(validate.Struct(r))
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	id, err := parseID(ctx)
	if err != nil {
		return nil, err
	}
	return &GetPaymentRequest{Id: id}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Status: strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:  defaultListLimit,
	}

	var err error
	if req.UserId, err = queryUint(ctx, "user_id"); err != nil {
		return nil, err
	}
	if req.CourseId, err = queryUint(ctx, "course_id"); err != nil {
		return nil, err
	}
	if req.Limit, req.Offset, err = queryPage(ctx); err != nil {
		return nil, err
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = defaultListLimit
	}
	if err := validatePage(r.GetLimit(), r.GetOffset()); err != nil {
		return err
	}
	if r.GetStatus() != "" && !isValidPaymentStatus(r.GetStatus()) {
		return errors.New("invalid status")
	}
	return nil
}

func NewListEnrollmentsRequestFromContext(ctx echo.Context) (*ListEnrollmentsRequest, error) {
	req := &ListEnrollmentsRequest{Limit: defaultListLimit}

	var err error
	if req.UserId, err = queryUint(ctx, "user_id"); err != nil {
		return nil, err
	}
	if req.CourseId, err = queryUint(ctx, "course_id"); err != nil {
		return nil, err
	}
	if req.Limit, req.Offset, err = queryPage(ctx); err != nil {
		return nil, err
	}

	return req, nil
}

func (r *ListEnrollmentsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = defaultListLimit
	}
	return validatePage(r.GetLimit(), r.GetOffset())
}

// NewConfirmPaymentRequestFromContext reads the payment id from the path.
// The caller fills AdminRef from the authenticated admin identity.
func NewConfirmPaymentRequestFromContext(ctx echo.Context, adminRef string) (*ConfirmPaymentRequest, error) {
	id, err := parseID(ctx)
	if err != nil {
		return nil, err
	}
	return &ConfirmPaymentRequest{Id: id, AdminRef: strings.TrimSpace(adminRef)}, nil
}

func (r *ConfirmPaymentRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	if strings.TrimSpace(r.GetAdminRef()) == "" {
		return errors.New("admin_ref is required")
	}
	return nil
}

func NewRejectPaymentRequestFromContext(ctx echo.Context, adminRef string) (*RejectPaymentRequest, error) {
	id, err := parseID(ctx)
	if err != nil {
		return nil, err
	}
	return &RejectPaymentRequest{Id: id, AdminRef: strings.TrimSpace(adminRef)}, nil
}

func (r *RejectPaymentRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	if strings.TrimSpace(r.GetAdminRef()) == "" {
		return errors.New("admin_ref is required")
	}
	return nil
}

// NewProviderCallbackRequestFromContext keeps the body bytes untouched so the
// provider verifier sees exactly what was delivered. Bodies over maxBodyBytes
// are cut and flagged; the verifier rejects them only after authentication.
func NewProviderCallbackRequestFromContext(ctx echo.Context, maxBodyBytes int64) (*ProviderCallbackRequest, error) {
	body := ctx.Request().Body
	if maxBodyBytes > 0 {
		body = io.NopCloser(io.LimitReader(body, maxBodyBytes+1))
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	truncated := false
	if maxBodyBytes > 0 && int64(len(raw)) > maxBodyBytes {
		raw = raw[:maxBodyBytes]
		truncated = true
	}

	return &ProviderCallbackRequest{
		Provider:      strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		CallbackToken: ctx.Request().Header.Get(CallbackTokenHeader),
		ContentType:   ctx.Request().Header.Get(echo.HeaderContentType),
		Payload:       raw,
		Truncated:     truncated,
	}, nil
}

func (r *ProviderCallbackRequest) Validate() error {
	if r.GetProvider() == "" {
		return errors.New("provider is required")
	}
	return nil
}

func parseID(ctx echo.Context) (uint64, error) {
	return strconv.ParseUint(ctx.Param("id"), 10, 64)
}

func queryUint(ctx echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func queryPage(ctx echo.Context) (int32, int32, error) {
	limit := int32(defaultListLimit)
	offset := int32(0)

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		v, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return 0, 0, err
		}
		limit = int32(v)
	}
	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		v, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return 0, 0, err
		}
		offset = int32(v)
	}

	return limit, offset, nil
}

func validatePage(limit, offset int32) error {
	if limit <= 0 || limit > maxListLimit {
		return fmt.Errorf("limit must be between 1 and %d", maxListLimit)
	}
	if offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func isValidPaymentStatus(status string) bool {
	switch status {
	case "pending", "paid", "failed", "expired":
		return true
	default:
		return false
	}
}

// validationError flattens validator output into a single client-facing message.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	field := toSnake(first.Field())
	switch first.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "gt":
		return fmt.Errorf("%s must be > %s", field, first.Param())
	case "len":
		return fmt.Errorf("%s must be %s characters", field, first.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, first.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
