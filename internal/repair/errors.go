package repair

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"
)

// Errors returned by repairers.
var (
	// ErrMissingAPIKey indicates no API key is configured.
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrEmptyMarkup indicates there is no markup to fix.
	ErrEmptyMarkup = errors.New("no markup to fix")

	// ErrUnparseable indicates the model reply contained no usable markup.
	ErrUnparseable = errors.New("no markup in model response")

	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Kind categorizes repair failures.
type Kind string

// Failure kinds.
const (
	KindInvalidKey  Kind = "invalid_key"
	KindQuota       Kind = "quota"
	KindNetwork     Kind = "network"
	KindUpstream    Kind = "upstream"
	KindMissingKey  Kind = "missing_key"
	KindEmptyMarkup Kind = "empty_markup"
	KindUnparseable Kind = "unparseable"
)

// Messages shown for classified failures.
const (
	MessageMissingKey  = "API key is required. Please configure it in settings."
	MessageEmptyMarkup = "No code to fix."
	MessageUnparseable = "Could not extract valid Mermaid code from AI response"
	MessageEmptyReply  = "Empty response from AI model"
	MessageInvalidKey  = "Invalid API key. Please check your Gemini API key in settings."
	MessageQuota       = "API quota exceeded. Please try again later."
	MessageNetwork     = "Network error. Please check your internet connection."
	MessageDefault     = "Failed to fix code with AI"
)

// Error is a classified repair failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps err to a *Error with a user-facing message.
// It returns nil for a nil error and err itself if it is already a *Error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var re *Error
	if errors.As(err, &re) {
		return re
	}

	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return &Error{Kind: KindMissingKey, Message: MessageMissingKey, Err: err}
	case errors.Is(err, ErrEmptyMarkup):
		return &Error{Kind: KindEmptyMarkup, Message: MessageEmptyMarkup, Err: err}
	case errors.Is(err, ErrUnparseable):
		return &Error{Kind: KindUnparseable, Message: MessageUnparseable, Err: err}
	case errors.Is(err, ErrEmptyResponse):
		return &Error{Kind: KindUpstream, Message: MessageEmptyReply, Err: err}
	}

	if code, status, message, ok := apiError(err); ok {
		switch {
		case code == 401 || code == 403 || status == "PERMISSION_DENIED" ||
			strings.Contains(message, "API key not valid") || strings.Contains(err.Error(), "API_KEY_INVALID"):
			return &Error{Kind: KindInvalidKey, Message: MessageInvalidKey, Err: err}
		case code == 429 || status == "RESOURCE_EXHAUSTED" || strings.Contains(err.Error(), "QUOTA_EXCEEDED"):
			return &Error{Kind: KindQuota, Message: MessageQuota, Err: err}
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "API_KEY_INVALID"), strings.Contains(msg, "API key not valid"):
		return &Error{Kind: KindInvalidKey, Message: MessageInvalidKey, Err: err}
	case strings.Contains(msg, "QUOTA_EXCEEDED"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return &Error{Kind: KindQuota, Message: MessageQuota, Err: err}
	case isNetwork(err):
		return &Error{Kind: KindNetwork, Message: MessageNetwork, Err: err}
	}

	if msg == "" {
		msg = MessageDefault
	}
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func apiError(err error) (code int, status, message string, ok bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message, true
	}
	return 0, "", "", false
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
