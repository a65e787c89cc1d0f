package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные и неизвестные ошибки
	CodeInternalError ErrorCode = "INTERNAL_ERROR"

	// Общие ошибки бизнес-логики (используются фабриками)
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Аутентификация и Авторизация (они сквозные)
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeAccountNotApproved ErrorCode = "ACCOUNT_NOT_APPROVED"

	// Чат
	CodeRateLimited     ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	CodeContextMismatch ErrorCode = "DONATION_REQUEST_MISMATCH"
	CodeMessageTooLong  ErrorCode = "MESSAGE_TOO_LONG"
	CodeMessageEmpty    ErrorCode = "MESSAGE_REQUIRED"
)
