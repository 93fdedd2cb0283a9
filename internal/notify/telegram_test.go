package notify

import (
	"errors"
	"testing"
	"time"

	"paras/internal/events"
	"paras/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func testLoan() *models.Loan {
	return &models.Loan{
		ID:            "l1",
		RoomCode:      "TC-101",
		RoomName:      "Lecture Hall",
		RequesterName: "Siti Rahma",
		NRP:           "5025211001",
		StartTime:     models.NewCivilTime(time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)),
		EndTime:       models.NewCivilTime(time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)),
		Status:        models.StatusPending,
	}
}

func TestNotifierFansOutToEveryChat(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.Nop()
	bus := events.NewEventBus()

	n := NewTelegramNotifier(sender, []int64{10, 20}, &logger)
	n.SubscribeTo(bus)

	require.NoError(t, bus.PublishJSON(events.EventLoanCreated, events.PayloadFromLoan(testLoan(), "", "")))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(10), sender.sent[0].ChatID)
	assert.Equal(t, int64(20), sender.sent[1].ChatID)
	assert.Contains(t, sender.sent[0].Text, "New loan request")
	assert.Contains(t, sender.sent[0].Text, "TC-101")
	assert.Contains(t, sender.sent[0].Text, "Siti Rahma")
}

func TestNotifierHeadlinesFollowEventType(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.Nop()
	bus := events.NewEventBus()

	n := NewTelegramNotifier(sender, []int64{10}, &logger)
	n.SubscribeTo(bus)

	payload := events.PayloadFromLoan(testLoan(), "1990010101", "room free")
	require.NoError(t, bus.PublishJSON(events.EventLoanApproved, payload))
	require.NoError(t, bus.PublishJSON(events.EventLoanRejected, payload))
	require.NoError(t, bus.PublishJSON(events.EventLoanCancelled, payload))

	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[0].Text, "Loan approved")
	assert.Contains(t, sender.sent[0].Text, "Comment: room free")
	assert.Contains(t, sender.sent[0].Text, "By: 1990010101")
	assert.Contains(t, sender.sent[1].Text, "Loan rejected")
	assert.Contains(t, sender.sent[2].Text, "Loan cancelled")
}

func TestNotifierSwallowsSendFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	logger := zerolog.Nop()
	bus := events.NewEventBus()

	n := NewTelegramNotifier(sender, []int64{10}, &logger)
	n.SubscribeTo(bus)

	// Publishing never fails on a broken notifier.
	require.NoError(t, bus.PublishJSON(events.EventLoanCreated, events.PayloadFromLoan(testLoan(), "", "")))
}
