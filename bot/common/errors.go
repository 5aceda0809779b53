package common

import (
	"errors"
	"fmt"

	"ledgerbot/service"
)

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string // Message shown to Discord user
	LogMessage  string // Internal message for logging
	System      bool   // Storage or platform failure rather than an expected outcome
	Err         error  // Underlying error
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues (validation, insufficient funds, etc)
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
	}
}

// NewSystemError creates an error for system issues (database, unexpected state, etc)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: "Something went wrong. Please try again later.",
		LogMessage:  logMessage,
		System:      true,
		Err:         err,
	}
}

// FromServiceError translates a core error into the message a user should see
func FromServiceError(err error) *BotError {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr
	}

	wrap := func(message string) *BotError {
		return &BotError{UserMessage: message, LogMessage: "request rejected", Err: err}
	}

	switch {
	case errors.Is(err, service.ErrUserBanned):
		return wrap("Your account is suspended. Contact support if you think this is a mistake.")
	case errors.Is(err, service.ErrNotAuthorized):
		return wrap("You are not allowed to use this command.")
	case errors.Is(err, service.ErrRewardExists):
		return wrap("A reward with this name already exists.")
	case errors.Is(err, service.ErrInsufficientPoints):
		return wrap("You do not have enough points for this reward.")
	case errors.Is(err, service.ErrOutOfStock):
		return wrap("This reward is out of stock right now.")
	case errors.Is(err, service.ErrUserNotFound):
		return wrap("You are not registered yet. Use /start first.")
	case errors.Is(err, service.ErrRewardNotFound):
		return wrap("That reward does not exist.")
	}

	switch service.KindOf(err) {
	case service.KindValidation:
		return wrap(err.Error())
	case service.KindExternalUnavailable:
		be := wrap("Membership could not be verified right now. Please try again in a moment.")
		be.System = true
		return be
	default:
		return NewSystemError(err, "unexpected error")
	}
}
