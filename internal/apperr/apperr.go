// Package apperr provides coded errors for hard input failures.
//
// A coded error carries a machine-readable Code that callers branch on and a
// human-readable Detail. Soft data-quality issues are never reported through
// this package; they accumulate as warnings in the analysis output instead.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code identifies a class of hard failure.
type Code string

const (
	MeasurementsRequired Code = "MEASUREMENTS_REQUIRED"
	ImagesRequired       Code = "IMAGES_REQUIRED"
	DicomMissing         Code = "DICOM_MISSING"
	NonImageModality     Code = "NON_IMAGE_MODALITY"
	PixelDataUnreadable  Code = "PIXEL_DATA_UNREADABLE"
	SchemaInvalid        Code = "SCHEMA_INVALID"
	InvalidInput         Code = "INVALID_INPUT"
)

// Error is a hard input error.
type Error struct {
	Code   Code
	Detail string
	// Path is the file path or document field the error refers to, if any.
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// MarshalJSON renders the error as {"error": code, "detail": detail}.
func (e *Error) MarshalJSON() ([]byte, error) {
	payload := struct {
		Error  Code   `json:"error"`
		Detail string `json:"detail"`
		Path   string `json:"path,omitempty"`
	}{e.Code, e.Detail, e.Path}
	return json.Marshal(payload)
}

// New creates a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...), Err: err}
}

// WithPath sets the path the error refers to and returns the error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// CodeOf returns the code of the first coded error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Sentinels for errors.Is checks.
var (
	ErrMeasurementsRequired = &Error{Code: MeasurementsRequired}
	ErrImagesRequired       = &Error{Code: ImagesRequired}
	ErrDicomMissing         = &Error{Code: DicomMissing}
	ErrNonImageModality     = &Error{Code: NonImageModality}
	ErrSchemaInvalid        = &Error{Code: SchemaInvalid}
)
