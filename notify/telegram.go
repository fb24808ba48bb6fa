package notify

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"go.uber.org/zap"

	"github.com/scipunch/stocknews/config"
)

// Telegram sends messages from a bot account to a chat. Every message
// opens its own short-lived MTProto connection; there are only two
// messages per run.
type Telegram struct {
	creds       config.TelegramCredentials
	sessionPath string
	log         *zap.Logger
}

func NewTelegram(creds config.TelegramCredentials, configDir string, log *zap.Logger) (*Telegram, error) {
	if !creds.IsValid() {
		return nil, fmt.Errorf("telegram credentials require api_id, api_hash, bot_token and chat")
	}
	return &Telegram{
		creds:       creds,
		sessionPath: filepath.Join(configDir, "telegram-bot-session.json"),
		log:         log,
	}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		t.log.Warn("telegram rate limit", zap.Duration("retry_after", wait.Duration))
	})

	client := telegram.NewClient(t.creds.AppID, t.creds.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: t.sessionPath},
		Logger:         t.log.Named("telegram"),
		Middlewares:    []telegram.Middleware{waiter},
	})

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("telegram auth status: %w", err)
			}
			if !status.Authorized {
				if _, err := client.Auth().Bot(ctx, t.creds.BotToken); err != nil {
					return fmt.Errorf("telegram bot login: %w", err)
				}
			}

			sender := message.NewSender(client.API())
			if _, err := sender.Resolve(t.creds.Chat).Text(ctx, text); err != nil {
				return fmt.Errorf("telegram send to %s: %w", t.creds.Chat, err)
			}
			return nil
		})
	})
}
