package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Gateway delivers scheduler messages over the Telegram Bot API. It is the
// whole messaging surface of this service; chat commands and menus live in
// the companion bot process.
type Gateway struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

// NewGateway authenticates against the Bot API.
func NewGateway(token string, log *zap.Logger) (*Gateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info("telegram gateway ready", zap.String("username", bot.Self.UserName))
	return &Gateway{bot: bot, log: log}, nil
}

// Send delivers a plain-text message to the user's chat. The user ID is the
// chat ID for private chats. The Bot API client has no context support, so
// ctx only guards the pre-send check.
func (g *Gateway) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, text)
	_, err := g.bot.Send(msg)
	return err
}
