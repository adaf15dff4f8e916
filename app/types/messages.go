package types

// Wire messages shared by the HTTP and gRPC transports. Getters are nil-safe
// so services can accept narrow interfaces instead of these structs.

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CreateCheckoutRequest struct {
	UserId      uint64 `json:"user_id" validate:"required"`
	CourseId    uint64 `json:"course_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	PayerEmail  string `json:"payer_email" validate:"required,email,max=255"`
	Description string `json:"description,omitempty" validate:"max=255"`
	SuccessUrl  string `json:"success_url,omitempty" validate:"omitempty,url,max=1024"`
	FailureUrl  string `json:"failure_url,omitempty" validate:"omitempty,url,max=1024"`
	Provider    string `json:"provider,omitempty" validate:"max=32"`
}

func (r *CreateCheckoutRequest) GetUserId() uint64 {
	if r == nil {
		return 0
	}
	return r.UserId
}

func (r *CreateCheckoutRequest) GetCourseId() uint64 {
	if r == nil {
		return 0
	}
	return r.CourseId
}

func (r *CreateCheckoutRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

func (r *CreateCheckoutRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *CreateCheckoutRequest) GetPayerEmail() string {
	if r == nil {
		return ""
	}
	return r.PayerEmail
}

func (r *CreateCheckoutRequest) GetDescription() string {
	if r == nil {
		return ""
	}
	return r.Description
}

func (r *CreateCheckoutRequest) GetSuccessUrl() string {
	if r == nil {
		return ""
	}
	return r.SuccessUrl
}

func (r *CreateCheckoutRequest) GetFailureUrl() string {
	if r == nil {
		return ""
	}
	return r.FailureUrl
}

func (r *CreateCheckoutRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

type GetPaymentRequest struct {
	Id uint64 `json:"id"`
}

func (r *GetPaymentRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

type ListPaymentsRequest struct {
	UserId   uint64 `json:"user_id,omitempty"`
	CourseId uint64 `json:"course_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Limit    int32  `json:"limit,omitempty"`
	Offset   int32  `json:"offset,omitempty"`
}

func (r *ListPaymentsRequest) GetUserId() uint64 {
	if r == nil {
		return 0
	}
	return r.UserId
}

func (r *ListPaymentsRequest) GetCourseId() uint64 {
	if r == nil {
		return 0
	}
	return r.CourseId
}

func (r *ListPaymentsRequest) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}

func (r *ListPaymentsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListPaymentsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type ListEnrollmentsRequest struct {
	UserId   uint64 `json:"user_id,omitempty"`
	CourseId uint64 `json:"course_id,omitempty"`
	Limit    int32  `json:"limit,omitempty"`
	Offset   int32  `json:"offset,omitempty"`
}

func (r *ListEnrollmentsRequest) GetUserId() uint64 {
	if r == nil {
		return 0
	}
	return r.UserId
}

func (r *ListEnrollmentsRequest) GetCourseId() uint64 {
	if r == nil {
		return 0
	}
	return r.CourseId
}

func (r *ListEnrollmentsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListEnrollmentsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

// ConfirmPaymentRequest carries an operator decision. Over HTTP AdminRef is
// taken from the verified admin token, never from the body.
type ConfirmPaymentRequest struct {
	Id       uint64 `json:"id"`
	AdminRef string `json:"admin_ref"`
}

func (r *ConfirmPaymentRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *ConfirmPaymentRequest) GetAdminRef() string {
	if r == nil {
		return ""
	}
	return r.AdminRef
}

type RejectPaymentRequest struct {
	Id       uint64 `json:"id"`
	AdminRef string `json:"admin_ref"`
}

func (r *RejectPaymentRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *RejectPaymentRequest) GetAdminRef() string {
	if r == nil {
		return ""
	}
	return r.AdminRef
}

// ProviderCallbackRequest is the raw webhook delivery. It has no gRPC form.
type ProviderCallbackRequest struct {
	Provider      string
	CallbackToken string
	ContentType   string
	Payload       []byte
	Truncated     bool
}

func (r *ProviderCallbackRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

func (r *ProviderCallbackRequest) GetCallbackToken() string {
	if r == nil {
		return ""
	}
	return r.CallbackToken
}

func (r *ProviderCallbackRequest) GetContentType() string {
	if r == nil {
		return ""
	}
	return r.ContentType
}

func (r *ProviderCallbackRequest) GetTruncated() bool {
	if r == nil {
		return false
	}
	return r.Truncated
}

func (r *ProviderCallbackRequest) GetPayload() []byte {
	if r == nil {
		return nil
	}
	return r.Payload
}

type Payment struct {
	Id                 uint64 `json:"id"`
	IdempotencyToken   string `json:"idempotency_token"`
	UserId             uint64 `json:"user_id"`
	CourseId           uint64 `json:"course_id"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	Status             string `json:"status"`
	Provider           string `json:"provider"`
	PayerEmail         string `json:"payer_email"`
	ProviderInvoiceRef string `json:"provider_invoice_ref,omitempty"`
	CheckoutUrl        string `json:"checkout_url,omitempty"`
	PaidAt             string `json:"paid_at,omitempty"`
	EnrollmentId       uint64 `json:"enrollment_id,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type Enrollment struct {
	Id              uint64 `json:"id"`
	UserId          uint64 `json:"user_id"`
	CourseId        uint64 `json:"course_id"`
	Status          string `json:"status"`
	EnrolledAt      string `json:"enrolled_at"`
	AccessExpiresAt string `json:"access_expires_at,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type ListEnrollmentsResponse struct {
	Enrollments []*Enrollment `json:"enrollments"`
}

// ReconcileResponse reports how a notification or operator decision was applied.
type ReconcileResponse struct {
	Message          string      `json:"message"`
	Outcome          string      `json:"outcome"`
	Payment          *Payment    `json:"payment,omitempty"`
	Enrollment       *Enrollment `json:"enrollment,omitempty"`
	EnrollmentAction string      `json:"enrollment_action,omitempty"`
}
