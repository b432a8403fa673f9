package inbound_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/inbound"
	"github.com/shandysiswandi/gonotif/internal/notification/usecase"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/shandysiswandi/gonotif/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startConsumers(t *testing.T, fake *fakeUC) *messaging.Memory {
	t.Helper()

	broker := messaging.NewMemory()
	gm := goroutine.NewManager(16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = broker.Close()
		_ = gm.Wait()
	})

	inbound.RegisterMQConsumer(ctx, nil, gm, broker, uid.NewUUID(), fake, instrument.NewNoop())

	for _, topic := range []string{
		event.NotificationRequestedDestination,
		event.TicketEventsDestination,
		event.QuoteEventsDestination,
		event.OneTimeCodeRequestedDestination,
		event.MediaEventsDestination,
		event.MessageEventsDestination,
		event.UserRegistrationDestination,
	} {
		require.Eventually(t, func() bool { return broker.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond, topic)
	}

	return broker
}

func publish(t *testing.T, broker *messaging.Memory, topic string, body any) {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), topic, messaging.OutgoingMessage{Body: b}))
}

func (f *fakeUC) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestMQConsumer_DecodesTypedEvents(t *testing.T) {
	t.Parallel()

	fake := &fakeUC{}
	broker := startConsumers(t, fake)

	publish(t, broker, event.TicketEventsDestination, event.TicketEventMessage{
		Type:         "ticket_assigned",
		TicketID:     "T-9",
		Subject:      "Printer on fire",
		ActorID:      "agent-1",
		RecipientIDs: []string{"user-1"},
	})
	require.Eventually(t, func() bool { return fake.eventCount() == 1 }, time.Second, 5*time.Millisecond)

	publish(t, broker, event.MessageEventsDestination, event.MessageEventMessage{
		ConversationID: "c-1",
		SenderID:       "user-2",
		RecipientIDs:   []string{"user-1"},
		Body:           "hello there",
	})
	require.Eventually(t, func() bool { return fake.eventCount() == 2 }, time.Second, 5*time.Millisecond)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	ticket, ok := fake.events[0].(entity.TicketEvent)
	require.True(t, ok)
	assert.Equal(t, entity.TypeTicketAssigned, ticket.Type)
	assert.Equal(t, "T-9", ticket.TicketID)
	assert.Equal(t, []string{"user-1"}, ticket.RecipientIDs)

	msg, ok := fake.events[1].(entity.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, "hello there", msg.Preview)
}

func TestMQConsumer_UserRegistration(t *testing.T) {
	t.Parallel()

	fake := &fakeUC{}
	broker := startConsumers(t, fake)

	publish(t, broker, event.UserRegistrationDestination, event.UserRegistrationMessage{
		UserID:   1024,
		Email:    "new@example.com",
		FullName: "New User",
	})

	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.users) == 1
	}, time.Second, 5*time.Millisecond)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, usecase.UserRegisteredInput{UserID: "1024", Email: "new@example.com", FullName: "New User"}, fake.users[0])
}

func TestMQConsumer_ErrorHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		body      any
		wantCalls int
	}{
		{
			name:      "InvalidEventIsAcked",
			err:       goerror.NewInvalidInput(errors.New("title is a required field")),
			body:      event.OneTimeCodeMessage{UserID: "user-1", Code: "123456"},
			wantCalls: 1,
		},
		{
			name:      "ServerErrorIsRedelivered",
			err:       goerror.NewServer(errors.New("db down")),
			body:      event.OneTimeCodeMessage{UserID: "user-1", Code: "123456"},
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeUC{err: tt.err}
			broker := startConsumers(t, fake)

			publish(t, broker, event.OneTimeCodeRequestedDestination, tt.body)

			require.Eventually(t, func() bool { return fake.eventCount() == tt.wantCalls }, time.Second, 5*time.Millisecond)
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, tt.wantCalls, fake.eventCount())
		})
	}

	t.Run("MalformedBodyIsAcked", func(t *testing.T) {
		t.Parallel()

		fake := &fakeUC{}
		broker := startConsumers(t, fake)

		require.NoError(t, broker.Publish(context.Background(), event.QuoteEventsDestination, messaging.OutgoingMessage{Body: []byte("{not json")}))
		require.NoError(t, broker.Publish(context.Background(), event.QuoteEventsDestination, messaging.OutgoingMessage{Body: []byte(`{"type":"quote_created","quote_id":"q-1","actor_id":"a","recipient_ids":["u"]}`)}))

		require.Eventually(t, func() bool { return fake.eventCount() == 1 }, time.Second, 5*time.Millisecond)
		fake.mu.Lock()
		defer fake.mu.Unlock()
		quote, ok := fake.events[0].(entity.QuoteEvent)
		require.True(t, ok)
		assert.Equal(t, "q-1", quote.QuoteID)
	})
}
