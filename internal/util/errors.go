package util

import (
	"context"
	"errors"
	"net/http"
)

// ErrorKind 业务错误分类，控制器据此映射 HTTP 状态码
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindBadRequest
	KindServiceError
	KindServiceUnavailable
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindServiceError:
		return "service_error"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *AppError) Unwrap() error { return e.Err }

// Is 同类且（目标无消息或消息相同）即视为匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap 保留底层错误链
func Wrap(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// 通用分类哨兵，用于 errors.Is(err, util.ErrNotFound) 之类的判断
var (
	ErrNotFound           = &AppError{Kind: KindNotFound}
	ErrConflict           = &AppError{Kind: KindConflict}
	ErrForbidden          = &AppError{Kind: KindForbidden}
	ErrBadRequest         = &AppError{Kind: KindBadRequest}
	ErrServiceError       = &AppError{Kind: KindServiceError}
	ErrServiceUnavailable = &AppError{Kind: KindServiceUnavailable}
	ErrUnauthorized       = &AppError{Kind: KindUnauthorized}
)

var (
	ErrUserNotFound        = NewError(KindNotFound, "user not found")
	ErrEmailRegistered     = NewError(KindConflict, "email already registered")
	ErrInvalidCredentials  = NewError(KindUnauthorized, "invalid email or password")
	ErrPermissionDenied    = NewError(KindForbidden, "permission denied")
	ErrInvalidResetCode    = NewError(KindBadRequest, "invalid or expired verification code")
	ErrPasswordMismatch    = NewError(KindBadRequest, "passwords do not match")
	ErrProfileNotFound     = NewError(KindNotFound, "profile not found")
	ErrProfileExists       = NewError(KindConflict, "profile already exists")
	ErrProfileRequired     = NewError(KindForbidden, "complete your profile before taking the assessment")
	ErrAssessmentCompleted = NewError(KindForbidden, "assessment already completed")
	ErrSessionNotFound     = NewError(KindNotFound, "assessment session not found")
	ErrAlreadySubmitted    = NewError(KindConflict, "assessment already submitted")
	ErrReportNotReady      = NewError(KindNotFound, "assessment report not available")
	ErrPaymentNotFound     = NewError(KindNotFound, "payment not found")
	ErrInvalidSignature    = NewError(KindBadRequest, "invalid payment signature")
	ErrPaymentRequired     = NewError(KindBadRequest, "a completed payment is required")
	ErrRoadmapNotFound     = NewError(KindNotFound, "roadmap not found")
	ErrGenerationFailed    = NewError(KindServiceError, "content generation failed")
	ErrGenerationTimeout   = NewError(KindServiceUnavailable, "content generation timed out")
	ErrGatewayFailed       = NewError(KindServiceError, "payment gateway error")
)

// KindOf 返回错误分类，非 AppError 归为 KindInternal
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindServiceUnavailable
	}
	return KindInternal
}

func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindServiceError:
		return http.StatusBadGateway
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可展示给客户端的消息
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return http.StatusText(HTTPStatus(KindOf(err)))
}
