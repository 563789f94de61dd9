package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Is 按错误码比较，允许 errors.Is(err, errors.Unauthorized)
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	return ok && t.Code == d.Code
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	Unauthorized    = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID   = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
	InternalError   = Definition{Code: "INTERNAL_ERROR", Message: "Internal error"}
)

// 引导流程错误。
var (
	OnboardingPurposeInvalid      = Definition{Code: "ONBOARDING_PURPOSE_INVALID", Message: "Onboarding purpose invalid"}
	OnboardingSessionNotFound     = Definition{Code: "ONBOARDING_SESSION_NOT_FOUND", Message: "Onboarding session not found"}
	OnboardingSessionForbidden    = Definition{Code: "ONBOARDING_SESSION_FORBIDDEN", Message: "Onboarding session belongs to another user"}
	OnboardingTargetInvalid       = Definition{Code: "ONBOARDING_TARGET_INVALID", Message: "Onboarding data target invalid"}
	OnboardingDataInvalid         = Definition{Code: "ONBOARDING_DATA_INVALID", Message: "Onboarding data invalid"}
	OnboardingSubmissionInFlight  = Definition{Code: "ONBOARDING_SUBMISSION_IN_FLIGHT", Message: "Onboarding submission in progress"}
	OnboardingProfileNotFound     = Definition{Code: "ONBOARDING_PROFILE_NOT_FOUND", Message: "Onboarding profile not found"}
	OnboardingSessionStateCorrupt = Definition{Code: "ONBOARDING_SESSION_CORRUPT", Message: "Onboarding session state corrupt"}
)

// 内部基础设施错误，不直接返回给客户端。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
	ErrRedisNotInitialized          = stderrors.New("redis client not initialized")
	ErrDatabaseNotInitialized       = stderrors.New("database not initialized")
	ErrMQNotInitialized             = stderrors.New("rabbitmq connection not initialized")
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:                InvalidRequest,
	Unauthorized.Code:                  Unauthorized,
	InvalidUserID.Code:                 InvalidUserID,
	TooManyRequests.Code:               TooManyRequests,
	InternalError.Code:                 InternalError,
	OnboardingPurposeInvalid.Code:      OnboardingPurposeInvalid,
	OnboardingSessionNotFound.Code:     OnboardingSessionNotFound,
	OnboardingSessionForbidden.Code:    OnboardingSessionForbidden,
	OnboardingTargetInvalid.Code:       OnboardingTargetInvalid,
	OnboardingDataInvalid.Code:         OnboardingDataInvalid,
	OnboardingSubmissionInFlight.Code:  OnboardingSubmissionInFlight,
	OnboardingProfileNotFound.Code:     OnboardingProfileNotFound,
	OnboardingSessionStateCorrupt.Code: OnboardingSessionStateCorrupt,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// WithMessage 保留错误码，替换提示信息
func (d Definition) WithMessage(message string) Definition {
	return Definition{Code: d.Code, Message: message}
}
