package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline stages. A StageError matches the sentinel of its stage with errors.Is.
var (
	ErrRender     = errors.New("render failed")
	ErrOCR        = errors.New("ocr failed")
	ErrExtraction = errors.New("extraction failed")
	ErrStore      = errors.New("store failed")
)

// StageError is the typed outcome of a failed pipeline stage.
type StageError struct {
	Stage   error
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Stage}
	}
	return []error{e.Stage, e.Cause}
}

// RenderError: document unreadable, unsupported or page out of range.
func RenderError(message string, cause error) error {
	return &StageError{Stage: ErrRender, Message: message, Cause: cause}
}

// OCRError: image unreadable or OCR engine failure.
func OCRError(message string, cause error) error {
	return &StageError{Stage: ErrOCR, Message: message, Cause: cause}
}

// ExtractionError: structured-extraction response malformed or schema-violating.
func ExtractionError(message string, cause error) error {
	return &StageError{Stage: ErrExtraction, Message: message, Cause: cause}
}

// StoreError: persistence layer unreachable or constraint violation.
func StoreError(message string, cause error) error {
	return &StageError{Stage: ErrStore, Message: message, Cause: cause}
}

// StageOf returns the stage sentinel carried by err, or nil.
func StageOf(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return nil
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

// StatusFromStage maps a pipeline failure to a gRPC status.
func StatusFromStage(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRender):
		return status.Error(codes.InvalidArgument, "document could not be rendered")
	case errors.Is(err, ErrOCR):
		return status.Error(codes.FailedPrecondition, "text recognition failed")
	case errors.Is(err, ErrExtraction):
		return status.Error(codes.Unavailable, "structured extraction failed")
	case errors.Is(err, ErrStore):
		return status.Error(codes.Unavailable, "report could not be stored")
	default:
		return InternalError("processing failed")
	}
}
