package telegram

import "errors"

var (
	// ErrChatIDRequired is returned when the node has no chatId parameter.
	ErrChatIDRequired = errors.New("chat ID is required")

	// ErrMessageRequired is returned when the node has no message parameter.
	ErrMessageRequired = errors.New("message is required")

	// ErrBotTokenRequired is returned when the resolved credential carries no bot token.
	ErrBotTokenRequired = errors.New("telegram bot token is required")
)
