// Package telegram sends scan summaries via the Telegram Bot API.
// Messages use MarkdownV2 and delivery is retried with a linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/tetrascan/internal/storage"
)

// sender is the part of *tgbotapi.BotAPI the client needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	sleep          func(time.Duration)
}

// Report is the content of one scan summary.
type Report struct {
	StartDate    string
	DurationDays int
	Threshold    float64
	Stations     []StationLine
	Top          []storage.RankedEvent
}

// StationLine summarises one station's outcome.
type StationLine struct {
	StationID string
	Events    int
	Errors    int
	Failure   string // non-empty when the scan failed as a whole
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		sleep:          time.Sleep,
	}, nil
}

// BuildReport collects per-station lines and the k strongest events from store.
func BuildReport(store *storage.Storage, startDate string, durationDays int, threshold float64, k int) Report {
	r := Report{
		StartDate:    startDate,
		DurationDays: durationDays,
		Threshold:    threshold,
		Top:          store.TopEvents(k),
	}
	failures := store.Failures()
	for _, id := range store.Stations() {
		line := StationLine{StationID: id}
		if err, failed := failures[id]; failed {
			line.Failure = err.Error()
		} else if res, err := store.GetResult(id); err == nil {
			line.Events = store.EventCount(id)
			line.Errors = len(res.Errors)
		}
		r.Stations = append(r.Stations, line)
	}
	return r
}

// Send sends the scan summary
func (c *Client) Send(report Report) error {
	msg := tgbotapi.NewMessage(c.chatID, formatMessage(report))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			c.sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func formatMessage(r Report) string {
	var b strings.Builder

	b.WriteString("⚡ *Scan Summary*\n\n")
	b.WriteString(escapeMarkdownV2(fmt.Sprintf("📅 %s, %d day(s), threshold %gσ", r.StartDate, r.DurationDays, r.Threshold)))
	b.WriteString("\n\n")

	for _, s := range r.Stations {
		name := escapeMarkdownV2(s.StationID)
		if s.Failure != "" {
			fmt.Fprintf(&b, "❌ %s: %s\n", name, escapeMarkdownV2(s.Failure))
			continue
		}
		fmt.Fprintf(&b, "• %s: *%d* events", name, s.Events)
		if s.Errors > 0 {
			fmt.Fprintf(&b, ", %d errors", s.Errors)
		}
		b.WriteString("\n")
	}

	if len(r.Top) > 0 {
		b.WriteString("\n*Strongest events*\n")
	}
	for i, e := range r.Top {
		line := fmt.Sprintf("%s %s t=%.3fs count=%d (ave %.3f, min %.0f)",
			e.Event.StationID, e.Info.DayLabel, e.Event.Trigger.Timestamp,
			e.Event.Trigger.Count, e.Info.BaselineMean, e.Info.TriggerThreshold)
		fmt.Fprintf(&b, "%d\\. *%dσ* %s\n", i+1, e.Event.Trigger.SigmaLevel, escapeMarkdownV2(line))
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
