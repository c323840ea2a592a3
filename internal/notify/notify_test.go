package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

var eventTime = time.Date(2024, 5, 4, 12, 30, 0, 0, time.UTC)

func transferEvent() service.Event {
	return service.Event{
		Type:      service.EventTransfer,
		Username:  "alice",
		Timestamp: eventTime,
		Transfer: &model.TransferRecord{
			ID:          "tr-1",
			Source:      "alice",
			Target:      "bob",
			Amount:      decimal.RequireFromString("12.5"),
			Description: "lunch",
			CreatedAt:   eventTime,
		},
	}
}

func advisoryEvent() service.Event {
	return service.Event{
		Type:      service.EventAdvisory,
		Username:  "alice",
		Timestamp: eventTime,
		Advisories: []model.Advisory{
			{Code: model.AdvisoryBudgetExceeded, Severity: model.SeverityCritical, Category: "Food", Message: "Food budget exceeded"},
			{Code: model.AdvisoryLowReserve, Severity: model.SeverityWarning, Message: "Low reserve"},
		},
	}
}

func TestNewEventMessage(t *testing.T) {
	msg := NewEventMessage(transferEvent())
	require.NotNil(t, msg.Transfer)
	assert.Equal(t, "transfer", msg.Type)
	assert.Equal(t, "12.50", msg.Transfer.Amount)
	assert.Equal(t, "2024-05-04T12:30:00", msg.Transfer.CreatedAt)

	body, err := msg.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(body), "advisories", "empty advisories are omitted")

	parsed, err := EventMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.Transfer, parsed.Transfer)
	assert.True(t, parsed.Timestamp.Equal(eventTime))
}

func TestNewEventMessage_Advisories(t *testing.T) {
	msg := NewEventMessage(advisoryEvent())
	assert.Nil(t, msg.Transfer)
	require.Len(t, msg.Advisories, 2)
	assert.Equal(t, AdvisoryMessage{
		Code:     "budget_exceeded",
		Severity: "critical",
		Category: "Food",
		Message:  "Food budget exceeded",
	}, msg.Advisories[0])
}

func TestNewEventMessage_DefaultsTimestamp(t *testing.T) {
	msg := NewEventMessage(service.Event{Type: service.EventAdvisory, Username: "bob"})
	assert.False(t, msg.Timestamp.IsZero())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewLogNotifier(logger)

	require.NoError(t, n.Notify(context.Background(), advisoryEvent()))
	require.NoError(t, n.Notify(context.Background(), transferEvent()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var records []map[string]any
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	assert.Equal(t, "ERROR", records[0]["level"])
	assert.Equal(t, "budget_exceeded", records[0]["code"])
	assert.Equal(t, "WARN", records[1]["level"])
	assert.Equal(t, "Transfer completed", records[2]["msg"])
	assert.Equal(t, "tr-1", records[2][common.FieldTransfer])
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Notify(context.Context, service.Event) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	ok := &stubNotifier{}
	failing := &stubNotifier{err: errors.New("down")}

	err := Multi{failing, nil, ok}.Notify(context.Background(), advisoryEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, 1, ok.calls, "later notifiers still run after a failure")
	assert.Equal(t, 1, failing.calls)

	assert.NoError(t, Multi{ok}.Notify(context.Background(), advisoryEvent()))
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func fastPublisher(ch publishChannel) *Publisher {
	p := newPublisher(ch, nil, "purse", "purse.events")
	p.retry = service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	return p
}

func TestPublisher_Notify(t *testing.T) {
	ch := &mockChannel{}
	ch.On("PublishWithContext", mock.Anything, "purse", "purse.events", false, false,
		mock.MatchedBy(func(p amqp091.Publishing) bool {
			msg, err := EventMessageFromJSON(p.Body)
			return err == nil &&
				p.ContentType == "application/json" &&
				p.DeliveryMode == amqp091.Persistent &&
				msg.Transfer != nil && msg.Transfer.ID == "tr-1"
		})).Return(nil).Once()

	require.NoError(t, fastPublisher(ch).Notify(context.Background(), transferEvent()))
	ch.AssertExpectations(t)
}

func TestPublisher_RetriesTransientFailure(t *testing.T) {
	ch := &mockChannel{}
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(errors.New("channel busy")).Once()
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(nil).Once()

	require.NoError(t, fastPublisher(ch).Notify(context.Background(), advisoryEvent()))
	ch.AssertNumberOfCalls(t, "PublishWithContext", 2)
}

func TestPublisher_GivesUp(t *testing.T) {
	ch := &mockChannel{}
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(errors.New("connection closed"))

	err := fastPublisher(ch).Notify(context.Background(), advisoryEvent())
	require.ErrorIs(t, err, common.ErrMaxRetries)
	ch.AssertNumberOfCalls(t, "PublishWithContext", 3)
}

func TestPublisher_Close(t *testing.T) {
	ch := &mockChannel{}
	ch.On("Close").Return(nil).Once()

	require.NoError(t, fastPublisher(ch).Close())
	ch.AssertExpectations(t)
}
