package models

import (
	"errors"
	"fmt"
)

// Error codes for the chat pipeline. The INVALID_* and PERSONA_NOT_FOUND
// family means the client must fix the request; the UPSTREAM_* pair is
// retryable by the caller after backing off. Nothing here is retried
// automatically by the streamer.
const (
	CodeInvalidMessage  = "INVALID_MESSAGE"
	CodeInvalidHistory  = "INVALID_HISTORY"
	CodePersonaNotFound = "PERSONA_NOT_FOUND"
	CodeQuotaExceeded   = "UPSTREAM_QUOTA_EXCEEDED"
	CodeRateLimited     = "UPSTREAM_RATE_LIMITED"
	CodeStreamTransport = "STREAM_TRANSPORT_ERROR"
	CodeStorageWrite    = "STORAGE_WRITE_ERROR"
	CodeChatProcessing  = "CHAT_PROCESSING_ERROR"
)

// ChatError is a typed error carrying an API error code. It crosses the
// wire as an APIError.
type ChatError struct {
	Code    string
	Message string
	Details string
}

func (e *ChatError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the caller may retry after backing off.
func (e *ChatError) Retryable() bool {
	return e.Code == CodeQuotaExceeded || e.Code == CodeRateLimited
}

// APIError converts to the wire representation.
func (e *ChatError) APIError() *APIError {
	return &APIError{Code: e.Code, Message: e.Message, Details: e.Details}
}

// NewChatError builds a ChatError with a code and message.
func NewChatError(code, message, details string) *ChatError {
	return &ChatError{Code: code, Message: message, Details: details}
}

// AsChatError extracts a ChatError from err, wrapping anything else as a
// generic CHAT_PROCESSING_ERROR so every failure has a wire code.
func AsChatError(err error) *ChatError {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce
	}
	return &ChatError{
		Code:    CodeChatProcessing,
		Message: "Failed to process chat message",
		Details: err.Error(),
	}
}
