package service

import "errors"

var (
	// ErrSessionNotFound is returned when the checkout session does not exist
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrPaymentIncomplete is returned when the checkout session exists but has not been paid
	ErrPaymentIncomplete = errors.New("payment not completed")

	// ErrSessionMissingEmail is returned when the checkout session carries no customer email
	ErrSessionMissingEmail = errors.New("checkout session has no customer email")

	// ErrSessionMissingContent is returned when the checkout session metadata names no content
	ErrSessionMissingContent = errors.New("checkout session has no content metadata")
)
