package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ---------------------------------------------------------------------------
// Provider error taxonomy
// Every failure leaving this package is classified into one of a fixed set
// of categories so the API layer can show actionable, localized messages
// instead of raw provider payloads.
// ---------------------------------------------------------------------------

type ErrorCategory string

const (
	ErrInvalidCredential  ErrorCategory = "invalid_credential"
	ErrQuotaExceeded      ErrorCategory = "quota_exceeded"
	ErrServiceUnavailable ErrorCategory = "service_unavailable"
	ErrMalformedResponse  ErrorCategory = "malformed_response"
	ErrNetworkFailure     ErrorCategory = "network_failure"
	ErrUnknown            ErrorCategory = "unknown"
)

// APIError carries a classified provider failure plus the text shown to the
// end user. localized is pre-rendered at classification time because the
// request's locale is known there.
type APIError struct {
	Category  ErrorCategory
	Message   string // provider detail, for logs
	localized string
	wrapped   error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	return string(e.Category)
}

func (e *APIError) Unwrap() error { return e.wrapped }

// UserMessage returns the localized, user-facing text for this error.
func (e *APIError) UserMessage() string { return e.localized }

// supportedLocales drives language matching for user-facing error text.
// Vietnamese is the primary audience; English is the fallback.
var supportedLocales = language.NewMatcher([]language.Tag{
	language.Vietnamese, // first entry is the default
	language.English,
})

var userMessages = map[ErrorCategory]map[language.Tag]string{
	ErrInvalidCredential: {
		language.Vietnamese: "Khóa API không hợp lệ hoặc đã hết hạn. Vui lòng chọn lại thông tin đăng nhập và thử lại.",
		language.English:    "The API credential is invalid or expired. Please reselect your credential and try again.",
	},
	ErrQuotaExceeded: {
		language.Vietnamese: "Hạn mức sử dụng đã hết. Vui lòng kiểm tra gói cước và hạn mức của bạn, hoặc đợi một lúc rồi thử lại.",
		language.English:    "Your usage quota is exhausted. Please check your plan and billing limits, or wait a while and try again.",
	},
	ErrServiceUnavailable: {
		language.Vietnamese: "Dịch vụ AI đang quá tải hoặc tạm thời gián đoạn. Vui lòng thử lại sau ít phút.",
		language.English:    "The AI service is overloaded or temporarily unavailable. Please try again in a few minutes.",
	},
	ErrMalformedResponse: {
		language.Vietnamese: "Dịch vụ AI trả về dữ liệu không đúng định dạng. Vui lòng thử lại.",
		language.English:    "The AI service returned data in an unexpected format. Please try again.",
	},
	ErrNetworkFailure: {
		language.Vietnamese: "Kết nối tới dịch vụ AI bị gián đoạn. Vui lòng kiểm tra mạng và thử lại.",
		language.English:    "The connection to the AI service was interrupted. Please check your network and try again.",
	},
	ErrUnknown: {
		language.Vietnamese: "Đã xảy ra lỗi không xác định. Vui lòng thử lại.",
		language.English:    "An unexpected error occurred. Please try again.",
	},
}

// resolveLocale maps an arbitrary locale string (Accept-Language value,
// config default, "vi", "en-US", ...) onto a supported message language.
func resolveLocale(locale string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return language.Vietnamese
	}
	_, idx, _ := supportedLocales.Match(tags...)
	switch idx {
	case 1:
		return language.English
	default:
		return language.Vietnamese
	}
}

// newAPIError builds a classified error with its user text rendered for the
// given locale.
func newAPIError(cat ErrorCategory, locale string, err error) *APIError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &APIError{
		Category:  cat,
		Message:   msg,
		localized: userMessages[cat][resolveLocale(locale)],
		wrapped:   err,
	}
}

// Classify inspects a provider error and wraps it in an APIError. Already
// classified errors pass through unchanged. Matching is substring-based
// against the markers the providers actually emit; HTTP status codes appear
// in the wrapped message text for REST calls.
func Classify(err error, locale string) *APIError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*APIError); ok {
		return ae
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "requested entity was not found"),
		strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "status 401"),
		strings.Contains(msg, "status 403"):
		return newAPIError(ErrInvalidCredential, locale, err)

	case strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "status 429"):
		return newAPIError(ErrQuotaExceeded, locale, err)

	case strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "status 503"),
		strings.Contains(msg, "status 500"):
		return newAPIError(ErrServiceUnavailable, locale, err)

	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "unexpected eof"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "context deadline exceeded"):
		return newAPIError(ErrNetworkFailure, locale, err)
	}

	// Unclassified failures surface the provider's message verbatim.
	ae := newAPIError(ErrUnknown, locale, err)
	ae.localized = err.Error()
	return ae
}

// malformed flags a response that arrived but could not be interpreted.
func malformed(locale string, err error) *APIError {
	return newAPIError(ErrMalformedResponse, locale, err)
}
