package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/ml"

	tele "gopkg.in/telebot.v3"
)

type DayReader interface {
	GetLatestDay(ctx context.Context) (*domain.TradingDayRecord, error)
}

type ModelStatus interface {
	Status() *ml.Status
}

// Notifier pushes run reports to a configured Telegram chat and answers
// a small set of commands. Created only when both token and chat ID are
// configured.
type Notifier struct {
	bot    *tele.Bot
	chat   tele.ChatID
	symbol string
	days   DayReader
	model  ModelStatus
}

func NewNotifier(token string, chatID int64, symbol string, days DayReader, model ModelStatus) (*Notifier, error) {
	if token == "" || chatID == 0 {
		log.Println("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, Telegram delivery disabled")
		return nil, nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}
	return &Notifier{bot: b, chat: tele.ChatID(chatID), symbol: symbol, days: days, model: model}, nil
}

// Start registers command handlers and begins long polling.
func (n *Notifier) Start() {
	n.bot.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	n.bot.Handle("/latest", func(c tele.Context) error {
		day, err := n.days.GetLatestDay(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching latest day: %v", err))
		}
		return c.Send(formatDayMessage(n.symbol, day))
	})

	n.bot.Handle("/model", func(c tele.Context) error {
		s := n.model.Status()
		return c.Send(fmt.Sprintf(
			"Model trained: %v\nSamples: %d (min %d)\nCV accuracy: %.1f%%",
			s.IsTrained, s.TrainingSamples, s.MinRequired, s.Accuracy*100,
		))
	})

	log.Println("Telegram bot started")
	go n.bot.Start()
}

// SendReport delivers a finished run report. Failures are returned for the
// caller to log; they never affect the run itself.
func (n *Notifier) SendReport(_ context.Context, report string) error {
	_, err := n.bot.Send(n.chat, report)
	return err
}

func formatDayMessage(symbol string, d *domain.TradingDayRecord) string {
	msg := fmt.Sprintf(
		"%s %s\nClose: $%.2f\nVolume: %d",
		symbol, d.Date.Format(domain.DateLayout), d.Close, d.Volume,
	)
	if d.CombinedSentiment != nil {
		msg += fmt.Sprintf("\nSentiment: %.1f", *d.CombinedSentiment)
	}
	if d.Prediction != nil {
		msg += fmt.Sprintf("\nNext session: %s", *d.Prediction)
	}
	return msg
}
