package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для ошибок домена.
*/

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - операция невозможна в текущем статусе (409)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusConflict)
}

// PermissionDenied - отказ движка прав чата. Код причины уходит клиенту как есть.
func PermissionDenied(reason, message string) *AppError {
	return New(ErrorCode(reason), "chat", message, http.StatusForbidden)
}

// --- Auth ---

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrAccountNotApproved = New(
	CodeAccountNotApproved,
	"auth",
	"Your account is not approved yet",
	http.StatusForbidden,
)

// --- Chat ---

// ErrRateLimited - превышен лимит сообщений в окне
var ErrRateLimited = New(
	CodeRateLimited,
	"chat",
	"Too many requests. Please try again later.",
	http.StatusTooManyRequests,
)

// ErrReceiverNotFound - получатель не существует
var ErrReceiverNotFound = New(
	CodeUserNotFound,
	"chat",
	"User not found",
	http.StatusNotFound,
)

// ErrContextMismatch - donation_id относится к другой заявке, чем request_id
var ErrContextMismatch = New(
	CodeContextMismatch,
	"chat",
	"Donation does not belong to the specified request",
	http.StatusBadRequest,
)

var ErrMessageRequired = New(
	CodeMessageEmpty,
	"validation",
	"Message is required",
	http.StatusBadRequest,
)

var ErrMessageTooLong = New(
	CodeMessageTooLong,
	"validation",
	"Message is too long (maximum 5000 characters)",
	http.StatusBadRequest,
)

// ErrMessageOwnership - часть сообщений адресована не текущему пользователю
var ErrMessageOwnership = New(
	CodeForbidden,
	"chat",
	"You can only mark your own received messages as read",
	http.StatusForbidden,
)

// --- Lifecycle ---

var ErrRequestNotFound = New(CodeNotFound, "request", "Blood request not found", http.StatusNotFound)
var ErrDonationNotFound = New(CodeNotFound, "donation", "Donation not found", http.StatusNotFound)
var ErrVoluntaryNotFound = New(CodeNotFound, "voluntary_donation", "Voluntary donation not found", http.StatusNotFound)
var ErrUserNotFound = New(CodeUserNotFound, "user", "User not found", http.StatusNotFound)
var ErrNotificationNotFound = New(CodeNotFound, "notification", "Notification not found", http.StatusNotFound)
