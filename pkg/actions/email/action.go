// Package email provides the transactional email action.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
)

// Resend requires a verified domain in production; the onboarding sender
// works for development accounts.
const defaultFrom = "onboarding@resend.dev"

// emailSender is the slice of the Resend client the action uses.
// resend.Client.Emails satisfies it.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Action sends a transactional email.
type Action struct {
	credentialID string
	to           string
	subject      string
	body         string

	credentials *credentials.Resolver
	newClient   func(apiKey string) emailSender
}

func NewAction(parameters map[string]any, resolver *credentials.Resolver) (*Action, error) {
	credentialID, _ := parameters["credentialId"].(string)

	to, _ := parameters["to"].(string)
	if to == "" {
		return nil, ErrRecipientRequired
	}

	subject, _ := parameters["subject"].(string)
	body, _ := parameters["body"].(string)

	return &Action{
		credentialID: credentialID,
		to:           to,
		subject:      subject,
		body:         body,
		credentials:  resolver,
		newClient: func(apiKey string) emailSender {
			return resend.NewClient(apiKey).Emails
		},
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "email_action", "to", a.to)
	logger.InfoContext(ctx, "Executing email action")

	secret, err := a.credentials.Resolve(ctx, a.credentialID, executionCtx.OwnerID, models.CredentialTypeEmail)
	if err != nil {
		return nil, err
	}

	if secret.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	response, err := a.newClient(secret.APIKey).SendWithContext(ctx, &resend.SendEmailRequest{
		From:    defaultFrom,
		To:      []string{a.to},
		Subject: a.subject,
		Html:    fmt.Sprintf("<p>%s</p>", a.body),
	})
	if err != nil {
		return nil, fmt.Errorf("email API error: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "message_id", response.Id)

	return map[string]any{
		"success":   true,
		"messageId": response.Id,
	}, nil
}
