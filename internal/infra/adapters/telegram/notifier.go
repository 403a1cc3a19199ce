package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"credits-engine/internal/config"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/adapter"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/worker"
)

var _ adapter.OrderNotifier = (*BotNotifier)(nil)

// sender is the part of tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotNotifier posts order events to the configured admin chats. Messages are
// delivered from the worker pool so the order flow never waits on Telegram.
type BotNotifier struct {
	bot   sender
	chats []int64
	pool  *worker.Pool
	dev   bool
	log   *zerolog.Logger
}

func NewBotNotifier(cfg *config.TelegramConfig, pool *worker.Pool, dev bool, logger *zerolog.Logger) (*BotNotifier, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newBotNotifier(bot, cfg.AdminChatIDs, pool, dev, logger), nil
}

func newBotNotifier(bot sender, chats []int64, pool *worker.Pool, dev bool, logger *zerolog.Logger) *BotNotifier {
	l := logger.With().Str("component", "TelegramNotifier").Logger()
	return &BotNotifier{bot: bot, chats: chats, pool: pool, dev: dev, log: &l}
}

func (n *BotNotifier) OrderCreated(ctx context.Context, o *model.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 New order %s\n", o.ID)
	fmt.Fprintf(&b, "Plan: %s\n", o.PlanName)
	fmt.Fprintf(&b, "Customer: %s %s (%s)\n", o.FirstName, o.LastName, logging.Redact(o.Email, n.dev))
	fmt.Fprintf(&b, "Country: %s", o.Country)
	return n.broadcast(b.String())
}

func (n *BotNotifier) OrderValidated(ctx context.Context, o *model.Order, u *model.User) error {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Order %s validated\n", o.ID)
	if o.Credits != nil {
		fmt.Fprintf(&b, "Credits granted: %d\n", *o.Credits)
	}
	if o.Amount != nil && o.Currency != nil {
		fmt.Fprintf(&b, "Amount: %d %s\n", *o.Amount, *o.Currency)
	}
	if u != nil {
		fmt.Fprintf(&b, "User: %s, balance %d", logging.Redact(u.Email, n.dev), u.CreditsRemaining)
	}
	return n.broadcast(b.String())
}

// broadcast enqueues one message per admin chat. Only a saturated or stopped
// pool is reported; delivery failures are logged by the pool.
func (n *BotNotifier) broadcast(text string) error {
	var errs []error
	for _, chatID := range n.chats {
		chatID := chatID
		err := n.pool.Submit(func(ctx context.Context) error {
			if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
				return fmt.Errorf("telegram send to chat %d: %w", chatID, err)
			}
			n.log.Debug().Int64("chat_id", chatID).Msg("admin notified")
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

var _ adapter.OrderNotifier = (*NoopNotifier)(nil)

// NoopNotifier logs events at debug level instead of sending them.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) OrderCreated(ctx context.Context, o *model.Order) error {
	n.log.Debug().Str("order_id", o.ID).Msg("order created")
	return nil
}

func (n *NoopNotifier) OrderValidated(ctx context.Context, o *model.Order, u *model.User) error {
	n.log.Debug().Str("order_id", o.ID).Msg("order validated")
	return nil
}
