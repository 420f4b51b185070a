package errors

import (
	"net/http"

	"dbaportal/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details != "" {
		return e.errorCode + ": " + e.details
	}

	return e.errorCode + ": " + e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// Is matches any BaseError with the same code, so values derived through
// WithDetails or WithMessage still satisfy errors.Is against the predefined error.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode && t.httpCode == e.httpCode
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// WithMessage replaces the user-facing message, keeping the code.
func (e *BaseError) WithMessage(message string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   message,
		details:   e.details,
	}
}

// Account status messages. These two are shown verbatim to the client.
const (
	MessageAccountPending  = "Account is pending. Please wait for admin approval."
	MessageAccountRejected = "Account has been rejected. Please contact your administrator."
)

// Predefined error types
var (
	// User-related errors
	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"사용자를 찾을 수 없습니다",
		"",
	)

	ErrUserAlreadyExists = NewBaseError(
		http.StatusConflict,
		"USER_ALREADY_EXISTS",
		"이미 등록된 이메일입니다",
		"",
	)

	ErrInvalidStatusTransition = NewBaseError(
		http.StatusConflict,
		"INVALID_STATUS_TRANSITION",
		"현재 상태에서는 처리할 수 없는 요청입니다",
		"",
	)

	// Authentication-related errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"이메일 또는 비밀번호가 올바르지 않습니다",
		"",
	)

	ErrAccountPending = NewBaseError(
		http.StatusUnauthorized,
		"ACCOUNT_PENDING",
		MessageAccountPending,
		"",
	)

	ErrAccountRejected = NewBaseError(
		http.StatusUnauthorized,
		"ACCOUNT_REJECTED",
		MessageAccountRejected,
		"",
	)

	ErrAccountNotApproved = NewBaseError(
		http.StatusUnauthorized,
		"ACCOUNT_NOT_APPROVED",
		"승인되지 않은 계정입니다",
		"",
	)

	ErrTokenMissing = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_MISSING",
		"인증 토큰이 필요합니다",
		"",
	)

	ErrTokenExpired = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
		"토큰이 만료되었습니다",
		"",
	)

	ErrTokenInvalid = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_INVALID",
		"유효하지 않은 토큰입니다",
		"",
	)

	ErrRefreshTokenMissing = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_TOKEN_MISSING",
		"리프레시 토큰이 필요합니다",
		"",
	)

	ErrRefreshTokenInvalid = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_TOKEN_INVALID",
		"유효하지 않은 리프레시 토큰입니다",
		"",
	)

	ErrRefreshTokenExpired = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_TOKEN_EXPIRED",
		"리프레시 토큰이 만료되었습니다",
		"",
	)

	// ErrInvalidGrant is returned to the loser of a concurrent rotation and for consumed codes.
	ErrInvalidGrant = NewBaseError(
		http.StatusUnauthorized,
		"invalid_grant",
		"이미 사용되었거나 유효하지 않은 인증 정보입니다",
		"",
	)

	ErrInternalTokenInvalid = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_INTERNAL_TOKEN",
		"내부 서비스 인증에 실패했습니다",
		"",
	)

	ErrPasswordHashFailed = NewBaseError(
		http.StatusInternalServerError,
		"PASSWORD_HASH_FAILED",
		"비밀번호 처리 중 오류가 발생했습니다",
		"",
	)

	// Authorization-related errors
	ErrUnauthenticated = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"로그인이 필요합니다",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"접근 권한이 없습니다",
		"",
	)

	ErrInsufficientPermission = NewBaseError(
		http.StatusForbidden,
		"INSUFFICIENT_PERMISSION",
		"해당 작업을 수행할 권한이 없습니다",
		"",
	)

	ErrMissingClinicContext = NewBaseError(
		http.StatusBadRequest,
		"MISSING_CLINIC_CONTEXT",
		"병원 정보가 필요합니다",
		"",
	)

	// Session-related errors
	ErrSessionNotFound = NewBaseError(
		http.StatusNotFound,
		"SESSION_NOT_FOUND",
		"세션을 찾을 수 없습니다",
		"",
	)

	// OAuth errors carry the RFC 6749 codes.
	ErrOAuthInvalidRequest = NewBaseError(
		http.StatusBadRequest,
		"invalid_request",
		"잘못된 OAuth 요청입니다",
		"",
	)

	ErrOAuthInvalidClient = NewBaseError(
		http.StatusUnauthorized,
		"invalid_client",
		"클라이언트 인증에 실패했습니다",
		"",
	)

	ErrOAuthInvalidGrant = NewBaseError(
		http.StatusBadRequest,
		"invalid_grant",
		"유효하지 않거나 만료된 권한 부여입니다",
		"",
	)

	ErrOAuthUnsupportedGrantType = NewBaseError(
		http.StatusBadRequest,
		"unsupported_grant_type",
		"지원하지 않는 grant_type 입니다",
		"",
	)

	ErrOAuthInvalidToken = NewBaseError(
		http.StatusUnauthorized,
		"invalid_token",
		"유효하지 않은 액세스 토큰입니다",
		"",
	)

	// Gateway errors
	ErrServiceUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"SERVICE_UNAVAILABLE",
		"서비스를 일시적으로 사용할 수 없습니다",
		"",
	)

	ErrTooManyRequests = NewBaseError(
		http.StatusTooManyRequests,
		"TOO_MANY_REQUESTS",
		"요청이 너무 많습니다. 잠시 후 다시 시도해주세요",
		"",
	)

	ErrRouteNotFound = NewBaseError(
		http.StatusNotFound,
		"ROUTE_NOT_FOUND",
		"요청한 경로를 찾을 수 없습니다",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"입력값이 올바르지 않습니다",
		"",
	)

	// Transaction-related errors
	ErrTransactionFailed = NewBaseError(
		http.StatusInternalServerError,
		"TRANSACTION_FAILED",
		"데이터베이스 트랜잭션에 실패했습니다",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"서버 내부 오류가 발생했습니다",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"리소스를 찾을 수 없습니다",
		"",
	)

	ErrConflict = NewBaseError(
		http.StatusConflict,
		"CONFLICT",
		"리소스 충돌이 발생했습니다",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes the driver error.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "데이터베이스 처리 중 오류가 발생했습니다"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
