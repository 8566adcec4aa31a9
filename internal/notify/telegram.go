package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"detailing/internal/events"
	"detailing/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the part of *tgbotapi.BotAPI used for alerts.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts short alerts to the staff chats.
type Telegram struct {
	bot     TelegramSender
	chatIDs []int64
	catalog func() *models.Catalog
	logger  *zerolog.Logger
}

func NewTelegram(bot TelegramSender, chatIDs []int64, catalog func() *models.Catalog, logger *zerolog.Logger) *Telegram {
	return &Telegram{bot: bot, chatIDs: chatIDs, catalog: catalog, logger: logger}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, event events.Event) error {
	text, err := t.format(event)
	if err != nil {
		return Permanent(err)
	}

	var errs []error
	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			errs = append(errs, classifyTelegramError(chatID, err))
			continue
		}
		t.logger.Debug().Int64("chat_id", chatID).Str("event", string(event.Type)).Msg("Telegram alert sent")
	}
	return errors.Join(errs...)
}

// SendDocument uploads a file with caption to every staff chat.
func (t *Telegram) SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	var errs []error
	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: content})
		doc.Caption = caption
		if _, err := t.bot.Send(doc); err != nil {
			errs = append(errs, classifyTelegramError(chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) format(event events.Event) (string, error) {
	var sb strings.Builder
	switch event.Type {
	case events.BookingCreated:
		if event.Booking == nil {
			return "", fmt.Errorf("%s event without booking", event.Type)
		}
		b := event.Booking
		fmt.Fprintf(&sb, "New booking #%d\n", b.ID)
		fmt.Fprintf(&sb, "%s, %s at %s\n", b.CustomerName, longDate(b.ServiceDate), b.ServiceTime)
		fmt.Fprintf(&sb, "%s, %s\n", t.catalog().ServiceDisplay(b.ServiceType), capitalize(b.VehicleType))
		fmt.Fprintf(&sb, "%s\n", singleLine(strings.ReplaceAll(b.FullAddress(), "\n", ", ")))
		sb.WriteString(b.ContactInfo())
	case events.ContactSubmitted:
		if event.Contact == nil {
			return "", fmt.Errorf("%s event without message", event.Type)
		}
		c := event.Contact
		fmt.Fprintf(&sb, "New message from %s <%s>\n", c.Name, c.Email)
		if c.Phone != "" {
			fmt.Fprintf(&sb, "Phone: %s\n", c.Phone)
		}
		sb.WriteString(c.Message)
	default:
		return "", fmt.Errorf("unsupported event type %q", event.Type)
	}
	return sb.String(), nil
}

// classifyTelegramError maps API errors onto the dispatcher's retry rules.
func classifyTelegramError(chatID int64, err error) error {
	err = fmt.Errorf("chat %d: %w", chatID, err)

	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return err
	}
	switch tgErr.Code {
	case 429:
		return &RetryAfterError{Wait: time.Duration(tgErr.RetryAfter) * time.Second, Err: err}
	case 400, 403:
		return Permanent(err)
	}
	return err
}
