package apperr

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Exam composition errors
	CodeExamTitleEmpty          Code = "EXAM_TITLE_EMPTY"
	CodeExamInvalidDuration     Code = "EXAM_INVALID_DURATION"
	CodeExamInvalidBlueprint    Code = "EXAM_INVALID_BLUEPRINT"
	CodeExamInvalidMatrix       Code = "EXAM_INVALID_MATRIX"
	CodeExamDuplicateQuestion   Code = "EXAM_DUPLICATE_QUESTION"
	CodeExamDuplicateOrderIndex Code = "EXAM_DUPLICATE_ORDER_INDEX"
	CodeExamNegativeOrderIndex  Code = "EXAM_NEGATIVE_ORDER_INDEX"
	CodeExamNonPositivePoints   Code = "EXAM_NON_POSITIVE_POINTS"
	CodeExamTooFewQuestions     Code = "EXAM_TOO_FEW_QUESTIONS"
	CodeExamPointsMismatch      Code = "EXAM_POINTS_MISMATCH"
	CodeExamCountMismatch       Code = "EXAM_COUNT_MISMATCH"
	CodeExamMatrixMismatch      Code = "EXAM_MATRIX_MISMATCH"
	CodeExamNotValid            Code = "EXAM_NOT_VALID"

	// Session errors
	CodeSessionInvalidWindow Code = "SESSION_INVALID_WINDOW"
	CodeSessionWindowEnded   Code = "SESSION_WINDOW_ENDED"
	CodeSessionDuplicate     Code = "SESSION_DUPLICATE"
	CodeSessionInvalidRetry  Code = "SESSION_INVALID_RETRY"
	CodeSessionNotActive     Code = "SESSION_NOT_ACTIVE"

	// Attempt errors
	CodeAttemptRetryExhausted   Code = "ATTEMPT_RETRY_EXHAUSTED"
	CodeAttemptNotOwned         Code = "ATTEMPT_NOT_OWNED"
	CodeAttemptSessionMismatch  Code = "ATTEMPT_SESSION_MISMATCH"
	CodeAttemptNotInProgress    Code = "ATTEMPT_NOT_IN_PROGRESS"
	CodeAttemptUnknownQuestion  Code = "ATTEMPT_UNKNOWN_QUESTION"
	CodeQuestionTypeUnsupported Code = "QUESTION_TYPE_UNSUPPORTED"

	// Lookup errors
	CodeExamNotFound     Code = "EXAM_NOT_FOUND"
	CodeQuestionNotFound Code = "QUESTION_NOT_FOUND"
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeAttemptNotFound  Code = "ATTEMPT_NOT_FOUND"

	// Dependency errors
	CodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"

	// Auth errors
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUsernameTaken    Code = "USERNAME_TAKEN"
)

// Kind maps a code to its error kind.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidRequest,
		CodeExamTitleEmpty,
		CodeExamInvalidDuration,
		CodeExamInvalidBlueprint,
		CodeExamInvalidMatrix,
		CodeExamDuplicateQuestion,
		CodeExamDuplicateOrderIndex,
		CodeExamNegativeOrderIndex,
		CodeExamNonPositivePoints,
		CodeExamTooFewQuestions,
		CodeExamPointsMismatch,
		CodeExamCountMismatch,
		CodeExamMatrixMismatch,
		CodeExamNotValid,
		CodeSessionInvalidWindow,
		CodeSessionWindowEnded,
		CodeSessionDuplicate,
		CodeSessionInvalidRetry,
		CodeUsernameTaken:
		return KindValidation

	case CodeSessionNotActive,
		CodeAttemptRetryExhausted,
		CodeAttemptNotOwned,
		CodeAttemptSessionMismatch,
		CodeAttemptNotInProgress,
		CodeAttemptUnknownQuestion:
		return KindPolicy

	case CodeExamNotFound,
		CodeQuestionNotFound,
		CodeSessionNotFound,
		CodeAttemptNotFound:
		return KindNotFound

	case CodeCatalogUnavailable,
		CodeQuestionTypeUnsupported:
		return KindDependency

	case CodeUnauthenticated:
		return KindUnauthorized

	case CodePermissionDenied:
		return KindForbidden

	default:
		return KindInternal
	}
}
