package email

import "errors"

var (
	// ErrRecipientRequired is returned when the node has no "to" parameter.
	ErrRecipientRequired = errors.New("recipient is required")

	// ErrAPIKeyRequired is returned when the resolved credential carries no API key.
	ErrAPIKeyRequired = errors.New("email API key is required")
)
