// Package notify pushes loan lifecycle events to admin Telegram chats.
package notify

import (
	"encoding/json"
	"fmt"

	"paras/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the slice of the Telegram bot API we use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	sender  Sender
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(sender Sender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: chatIDs,
		logger:  logger,
	}
}

// SubscribeTo wires the notifier into the event bus.
func (n *TelegramNotifier) SubscribeTo(bus *events.EventBus) {
	bus.SubscribeAll(n.handle)
}

// handle formats and fans a loan event out to every admin chat. Send
// failures are logged and swallowed; notifications never fail the operation
// that triggered them.
func (n *TelegramNotifier) handle(event *events.Event) error {
	var payload events.LoanEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Warn().Err(err).Str("event", event.Type).Msg("decode event payload")
		return err
	}

	text := formatEvent(event.Type, payload)
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send notification")
		}
	}
	return nil
}

func formatEvent(eventType string, p events.LoanEventPayload) string {
	var headline string
	switch eventType {
	case events.EventLoanCreated:
		headline = "New loan request"
	case events.EventLoanApproved:
		headline = "Loan approved"
	case events.EventLoanRejected:
		headline = "Loan rejected"
	case events.EventLoanCancelled:
		headline = "Loan cancelled"
	default:
		headline = "Loan update"
	}

	text := fmt.Sprintf("%s\n%s · %s\n%s — %s\nRequester: %s (%s)",
		headline, p.RoomCode, p.RoomName,
		p.StartTime.String(), p.EndTime.String(),
		p.RequesterName, p.NRP)
	if p.Comment != "" {
		text += "\nComment: " + p.Comment
	}
	if p.ChangedBy != "" {
		text += "\nBy: " + p.ChangedBy
	}
	return text
}
