// Package notify forwards lottery events to administrators.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

const queueSize = 64

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts round and winner events to the admin chat. Messages are
// queued and sent by Run so publishing never waits on the Bot API.
type Telegram struct {
	bot    sender
	chatID int64
	queue  chan string
}

func NewTelegram(conf *config.TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(conf.BotToken)
	if err != nil {
		return nil, fmt.Errorf("tgbotapi.NewBotAPI -> %w", err)
	}

	zap.L().Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	return newTelegram(bot, conf.AdminChatID), nil
}

func newTelegram(bot sender, chatID int64) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan string, queueSize),
	}
}

func (t *Telegram) Publish(event domain.LotteryEvent) {
	text, ok := formatEvent(event)
	if !ok {
		return
	}

	select {
	case t.queue <- text:
	default:
		zap.L().Warn("telegram queue full, dropping notification", zap.String("event", string(event.Type)))
	}
}

// Run sends queued messages until ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
				zap.L().Error("failed to send telegram notification", zap.Error(err))
			}
		}
	}
}

func formatEvent(event domain.LotteryEvent) (string, bool) {
	switch event.Type {
	case domain.EventRoundClosed:
		return fmt.Sprintf("Round %d is closed and ready for the draw.", event.RoundNumber), true
	case domain.EventWinnerRegistered:
		return fmt.Sprintf("Winner registered in round %d: %s", event.RoundNumber, event.Code), true
	case domain.EventRoundDrawn:
		return fmt.Sprintf("Round %d draw completed.", event.RoundNumber), true
	}

	return "", false
}
