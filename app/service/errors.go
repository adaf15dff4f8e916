package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrAlreadyEnrolled      = errors.New("user already has access to this course")
	ErrInvalidState         = errors.New("invalid payment state")
	ErrProviderUnsupported  = errors.New("provider is not supported")
	ErrCallbackUnauthorized = errors.New("callback unauthorized")
	ErrCallbackMalformed    = errors.New("callback malformed")
	ErrProviderFailure      = errors.New("payment provider request failed")
)
