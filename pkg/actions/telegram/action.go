// Package telegram provides the Telegram bot message action.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/models"
)

// sender is the slice of the bot API the action uses. *tgbotapi.BotAPI
// satisfies it.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Action sends a text message to a chat through a bot.
type Action struct {
	credentialID string
	chatID       string
	message      string

	credentials *credentials.Resolver
	newBot      func(botToken string) (sender, error)
}

func NewAction(parameters map[string]any, resolver *credentials.Resolver) (*Action, error) {
	credentialID, _ := parameters["credentialId"].(string)

	chatID, _ := parameters["chatId"].(string)
	if chatID == "" {
		return nil, ErrChatIDRequired
	}

	message, _ := parameters["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	return &Action{
		credentialID: credentialID,
		chatID:       chatID,
		message:      message,
		credentials:  resolver,
		newBot: func(botToken string) (sender, error) {
			return tgbotapi.NewBotAPI(botToken)
		},
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "telegram_action", "chat_id", a.chatID)
	logger.InfoContext(ctx, "Executing Telegram action")

	secret, err := a.credentials.Resolve(ctx, a.credentialID, executionCtx.OwnerID, models.CredentialTypeTelegram)
	if err != nil {
		return nil, err
	}

	if secret.BotToken == "" {
		return nil, ErrBotTokenRequired
	}

	bot, err := a.newBot(secret.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram API error: %w", err)
	}

	// Numeric ids address users and groups; anything else is a channel
	// username like "@mychannel".
	var message tgbotapi.Chattable
	if chatID, parseErr := strconv.ParseInt(a.chatID, 10, 64); parseErr == nil {
		message = tgbotapi.NewMessage(chatID, a.message)
	} else {
		message = tgbotapi.NewMessageToChannel(a.chatID, a.message)
	}

	sent, err := bot.Send(message)
	if err != nil {
		return nil, fmt.Errorf("telegram API error: %w", err)
	}

	logger.InfoContext(ctx, "Telegram message sent", "message_id", sent.MessageID)

	return map[string]any{
		"success":   true,
		"messageId": sent.MessageID,
		"chat":      sent.Chat.ID,
	}, nil
}
