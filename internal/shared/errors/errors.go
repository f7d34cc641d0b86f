// Package errors provides the application error type shared by every layer.
// An AppError carries a coarse Type (how callers should react) and a fine
// grained Kind (what exactly went wrong).
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorType is the coarse error category.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeForbidden  ErrorType = "forbidden"
	ErrorTypeInternal   ErrorType = "internal_error"
	ErrorTypeExternal   ErrorType = "external_error"
)

// Kind is the fine grained error taxonomy.
type Kind string

// Input
const (
	KindInvalidGeometry      Kind = "InvalidGeometry"
	KindMissingRequiredField Kind = "MissingRequiredField"
	KindInvalidEnumValue     Kind = "InvalidEnumValue"
	KindInvalidContentSchema Kind = "InvalidContentSchema"
	KindInvalidEwkt          Kind = "InvalidEwkt"
)

// Lookup
const (
	KindPlanNotFound            Kind = "PlanNotFound"
	KindReplacedPlanMissing     Kind = "ReplacedPlanMissing"
	KindDeviceTypeUnsupported   Kind = "DeviceTypeUnsupported"
	KindForeignKeyLookupMissing Kind = "ForeignKeyLookupMissing"
	KindNotFound                Kind = "NotFound"
)

// Rule
const (
	KindReplacementCycle       Kind = "ReplacementCycle"
	KindAlreadyReplaced        Kind = "AlreadyReplaced"
	KindSelfReplacement        Kind = "SelfReplacement"
	KindNotReplacing           Kind = "NotReplacing"
	KindDuplicatePlanLink      Kind = "DuplicatePlanLink"
	KindContentSchemaMismatch  Kind = "ContentSchemaMismatch"
	KindMissingContentConflict Kind = "MissingContentConflict"
)

// Permission
const (
	KindForbidden                  Kind = "Forbidden"
	KindOperationalAreaDenied      Kind = "OperationalAreaDenied"
	KindResponsibleEntityDenied    Kind = "ResponsibleEntityDenied"
	KindNoResponsibleEntityTargets Kind = "NoResponsibleEntityTargets"
)

// Import
const (
	KindDiaryMissing          Kind = "DiaryMissing"
	KindDiaryDuplicate        Kind = "DiaryDuplicate"
	KindEmptyGeometry         Kind = "EmptyGeometry"
	KindGeometryTypeWrong     Kind = "GeometryTypeWrong"
	KindGeometryTopology      Kind = "GeometryTopology"
	KindGeometryOutOfBounds   Kind = "GeometryOutOfBounds"
	KindDecisionIDMismatch    Kind = "DecisionIdMismatch"
	KindDrawingNumberMismatch Kind = "DrawingNumberMismatch"
)

// External
const (
	KindVirusScanFailure     Kind = "VirusScanFailure"
	KindVirusScanUnavailable Kind = "VirusScanUnavailable"
	KindEmailSendFailure     Kind = "EmailSendFailure"
	KindInternal             Kind = "Internal"
)

var kindTypes = map[Kind]ErrorType{
	KindInvalidGeometry:      ErrorTypeValidation,
	KindMissingRequiredField: ErrorTypeValidation,
	KindInvalidEnumValue:     ErrorTypeValidation,
	KindInvalidContentSchema: ErrorTypeValidation,
	KindInvalidEwkt:          ErrorTypeValidation,

	KindPlanNotFound:            ErrorTypeNotFound,
	KindReplacedPlanMissing:     ErrorTypeNotFound,
	KindDeviceTypeUnsupported:   ErrorTypeValidation,
	KindForeignKeyLookupMissing: ErrorTypeNotFound,
	KindNotFound:                ErrorTypeNotFound,

	KindReplacementCycle:       ErrorTypeConflict,
	KindAlreadyReplaced:        ErrorTypeConflict,
	KindSelfReplacement:        ErrorTypeConflict,
	KindNotReplacing:           ErrorTypeConflict,
	KindDuplicatePlanLink:      ErrorTypeConflict,
	KindContentSchemaMismatch:  ErrorTypeValidation,
	KindMissingContentConflict: ErrorTypeValidation,

	KindForbidden:                  ErrorTypeForbidden,
	KindOperationalAreaDenied:      ErrorTypeForbidden,
	KindResponsibleEntityDenied:    ErrorTypeForbidden,
	KindNoResponsibleEntityTargets: ErrorTypeForbidden,

	KindDiaryMissing:          ErrorTypeValidation,
	KindDiaryDuplicate:        ErrorTypeValidation,
	KindEmptyGeometry:         ErrorTypeValidation,
	KindGeometryTypeWrong:     ErrorTypeValidation,
	KindGeometryTopology:      ErrorTypeValidation,
	KindGeometryOutOfBounds:   ErrorTypeValidation,
	KindDecisionIDMismatch:    ErrorTypeConflict,
	KindDrawingNumberMismatch: ErrorTypeConflict,

	KindVirusScanFailure:     ErrorTypeExternal,
	KindVirusScanUnavailable: ErrorTypeExternal,
	KindEmailSendFailure:     ErrorTypeExternal,
	KindInternal:             ErrorTypeInternal,
}

var typeCodes = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeConflict:   http.StatusConflict,
	ErrorTypeForbidden:  http.StatusForbidden,
	ErrorTypeInternal:   http.StatusInternalServerError,
	ErrorTypeExternal:   http.StatusBadGateway,
}

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another AppError by kind so errors.Is works with sentinel values.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string, details ...string) *AppError {
	typ, ok := kindTypes[kind]
	if !ok {
		typ = ErrorTypeInternal
	}
	return &AppError{
		Type:    typ,
		Kind:    kind,
		Message: message,
		Code:    typeCodes[typ],
		Details: firstDetail(details),
	}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

func NewValidationError(message string, details ...string) *AppError {
	return New(KindMissingRequiredField, message, details...)
}

func NewNotFoundError(message string, details ...string) *AppError {
	return New(KindNotFound, message, details...)
}

func NewConflictError(message string, details ...string) *AppError {
	e := New(KindInternal, message, details...)
	e.Type = ErrorTypeConflict
	e.Code = http.StatusConflict
	return e
}

func NewForbiddenError(message string, details ...string) *AppError {
	return New(KindForbidden, message, details...)
}

func NewInternalError(message string, details ...string) *AppError {
	return New(KindInternal, message, details...)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// KindOf returns the kind of err, or an empty kind when err is not an AppError.
func KindOf(err error) Kind {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

func IsForbiddenError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeForbidden
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "violates unique constraint") ||
		strings.Contains(errStr, "UNIQUE constraint failed")
}
