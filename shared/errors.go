package shared

import (
	"errors"
	"net/http"
)

// AppError is an error that knows how to render itself to a client.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     interface{}
	Err        error
}

// ErrorDetail is the data block of every error response.
type ErrorDetail struct {
	Error  string      `json:"error"`
	Code   string      `json:"code"`
	Fields interface{} `json:"fields,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Detail() ErrorDetail {
	return ErrorDetail{Error: e.Message, Code: e.Code, Fields: e.Fields}
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NewAppError(statusCode int, code string, err error, message string) *AppError {
	return &AppError{StatusCode: statusCode, Code: code, Message: message, Err: err}
}

func NewBadRequestError(err error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidPayload, err, message)
}

func NewValidationError(err error, fields interface{}) *AppError {
	appErr := NewAppError(http.StatusBadRequest, CodeValidationFailed, err, "Validation failed")
	appErr.Fields = fields
	return appErr
}

func NewNotFoundError(err error, message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, err, message)
}

func NewInternalError(err error, message string) *AppError {
	if message == "" {
		message = "Internal Server Error"
	}
	return NewAppError(http.StatusInternalServerError, CodeInternalError, err, message)
}
