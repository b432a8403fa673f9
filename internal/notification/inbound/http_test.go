package inbound_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/inbound"
	"github.com/shandysiswandi/gonotif/internal/notification/usecase"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	mu sync.Mutex

	sendIn   []usecase.SendNotificationInput
	acceptIn []usecase.AcceptNotificationInput
	bulkIn   []usecase.SendBulkInput
	statsIn  []usecase.StatsInput
	prefIn   []usecase.UserInput
	deviceIn []usecase.RegisterDeviceInput
	channel  []usecase.ChannelInput

	sendErr error
	events  []entity.Event
	users   []usecase.UserRegisteredInput
	err     error
}

func (f *fakeUC) Notify(_ context.Context, ev entity.Event) ([]entity.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil, f.err
}

func (f *fakeUC) ConsumeUserRegistration(_ context.Context, in usecase.UserRegisteredInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, in)
	return f.err
}

func (f *fakeUC) StreamNotifications(context.Context) (<-chan entity.InboxItem, error) {
	return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
}

func (f *fakeUC) SendNotification(_ context.Context, in usecase.SendNotificationInput) ([]entity.Outcome, error) {
	f.sendIn = append(f.sendIn, in)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return []entity.Outcome{{Channel: entity.ChannelPush, Status: entity.OutcomeDelivered, Attempts: 1}}, nil
}

func (f *fakeUC) AcceptNotification(_ context.Context, in usecase.AcceptNotificationInput) (usecase.AcceptResult, error) {
	f.acceptIn = append(f.acceptIn, in)
	return usecase.AcceptResult{Accepted: true}, nil
}

func (f *fakeUC) AcceptBulkNotifications(_ context.Context, in usecase.SendBulkInput) (usecase.BulkResult, error) {
	f.bulkIn = append(f.bulkIn, in)
	return usecase.BulkResult{Accepted: len(in.Payloads), Chunks: 1}, nil
}

func (f *fakeUC) GetPreferences(_ context.Context, in usecase.UserInput) (entity.NotificationPreferences, error) {
	f.prefIn = append(f.prefIn, in)
	return entity.DefaultPreferences(in.UserID, time.Time{}), nil
}

func (f *fakeUC) UpdatePreferences(_ context.Context, in usecase.UpdatePreferencesInput) (entity.NotificationPreferences, error) {
	return entity.NotificationPreferences{UserID: in.UserID, PushEnabled: *in.PushEnabled}, nil
}

func (f *fakeUC) EnableChannel(_ context.Context, in usecase.ChannelInput) (entity.NotificationPreferences, error) {
	f.channel = append(f.channel, in)
	return entity.DefaultPreferences(in.UserID, time.Time{}), nil
}

func (f *fakeUC) DisableChannel(_ context.Context, in usecase.ChannelInput) (entity.NotificationPreferences, error) {
	f.channel = append(f.channel, in)
	p := entity.DefaultPreferences(in.UserID, time.Time{})
	p.EmailEnabled = false
	return p, nil
}

func (f *fakeUC) GetDeliveryStats(_ context.Context, in usecase.StatsInput) (*entity.Stats, error) {
	f.statsIn = append(f.statsIn, in)
	return &entity.Stats{Total: 4, Delivered: 3, Failed: 1, SuccessRate: 0.75}, nil
}

func (f *fakeUC) GetChannelStats(_ context.Context, in usecase.StatsInput) ([]entity.Stats, error) {
	f.statsIn = append(f.statsIn, in)
	return []entity.Stats{{Key: "push", Total: 1}}, nil
}

func (f *fakeUC) GetNotificationTypeStats(_ context.Context, in usecase.StatsInput) ([]entity.Stats, error) {
	f.statsIn = append(f.statsIn, in)
	return nil, nil
}

func (f *fakeUC) GetFailedDeliveries(context.Context, usecase.FailedDeliveriesInput) ([]entity.DeliveryLogEntry, error) {
	return nil, nil
}

func (f *fakeUC) RegisterDevice(_ context.Context, in usecase.RegisterDeviceInput) error {
	f.deviceIn = append(f.deviceIn, in)
	return nil
}

func (f *fakeUC) RemoveDevice(context.Context, usecase.RemoveDeviceInput) error { return nil }

func (f *fakeUC) ListInbox(context.Context, usecase.ListInboxInput) ([]entity.InboxItem, error) {
	return []entity.InboxItem{{ID: 7, Type: entity.TypeSystem, Title: "hello"}}, nil
}

func (f *fakeUC) MarkInboxRead(context.Context, usecase.MarkInboxReadInput) error { return nil }

type successEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

type errorEnvelope struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error"`
}

type server struct {
	ro       *router.Router
	verifier *jwt.Symmetric
	uc       *fakeUC
}

func newServer(t *testing.T) *server {
	t.Helper()

	verifier, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(strings.Repeat("s", 64)),
		TTLMinutes: time.Hour,
		Clock:      clock.New(),
		UUID:       uid.NewUUID(),
	})
	require.NoError(t, err)

	az, err := router.NewCasbinAuthorizer([]string{
		"service|notification|send",
		"admin|*|*",
		"ops|stats|read",
	})
	require.NoError(t, err)

	ro := router.NewRouter(router.Config{
		UUID:       uid.NewUUID(),
		JWT:        verifier,
		Instrument: instrument.NewNoop(),
	})

	fake := &fakeUC{}
	inbound.RegisterHTTPEndpoint(inbound.HTTPDependency{
		Router:     ro,
		Limiter:    ratelimit.New(clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))),
		Authorizer: az,
	}, fake)

	return &server{ro: ro, verifier: verifier, uc: fake}
}

func (s *server) token(t *testing.T, userID string, roles ...string) string {
	t.Helper()

	token, err := s.verifier.Generate(userID, userID+"@example.com", roles...)
	require.NoError(t, err)
	return token
}

func (s *server) do(t *testing.T, method, path string, payload any, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.ro.ServeHTTP(rec, req)
	return rec
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, out any) successEnvelope {
	t.Helper()

	var env successEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

var sendBody = map[string]any{
	"recipient_id": "user-42",
	"type":         "ticket_created",
	"title":        "New ticket",
	"data":         map[string]any{"ticket_id": "T-1"},
	"ticket_id":    "T-1",
}

func TestSend(t *testing.T) {
	t.Parallel()

	t.Run("AcceptedWithIdempotencyKey", func(t *testing.T) {
		t.Parallel()

		// Arrange
		s := newServer(t)
		token := s.token(t, "svc-1", "service")

		// Act
		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send", sendBody, token, "Idempotency-Key", " req-1 ")

		// Assert
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		var data inbound.AcceptResponse
		env := decodeSuccess(t, rec, &data)
		assert.Equal(t, "notification accepted", env.Message)
		assert.True(t, data.Accepted)

		require.Len(t, s.uc.acceptIn, 1)
		assert.Equal(t, "req-1", s.uc.acceptIn[0].IdempotencyKey)
		assert.Equal(t, entity.TypeTicketCreated, s.uc.acceptIn[0].Payload.Type)
		assert.Equal(t, "T-1", s.uc.acceptIn[0].Payload.Data["ticket_id"])
	})

	t.Run("StrictDeliversSynchronously", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send?strict=true", sendBody, s.token(t, "svc-1", "service"))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data inbound.SendResponse
		decodeSuccess(t, rec, &data)
		require.Len(t, data.Outcomes, 1)
		assert.Equal(t, "push", data.Outcomes[0].Channel)
		assert.Equal(t, "delivered", data.Outcomes[0].Status)
		require.Len(t, s.uc.sendIn, 1)
		assert.True(t, s.uc.sendIn[0].Strict)
		assert.Empty(t, s.uc.acceptIn)
	})

	t.Run("StrictFailureIsBadGateway", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		s.uc.sendErr = goerror.NewUpstream("delivery failed on channel(s): email", nil)

		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send?strict=1", sendBody, s.token(t, "svc-1", "service"))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "delivery failed on channel(s): email", decodeError(t, rec).Message)
	})

	t.Run("InvalidStrictFlag", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send?strict=maybe", sendBody, s.token(t, "svc-1", "service"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RoleRequired", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send", sendBody, s.token(t, "user-42"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, s.uc.acceptIn)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send", sendBody, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RateLimited", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		token := s.token(t, "svc-1", "service")
		for i := range 10 {
			rec := s.do(t, http.MethodPost, "/api/v1/notifications/send", sendBody, token)
			require.Equal(t, http.StatusAccepted, rec.Code, "request %d", i+1)
		}

		rec := s.do(t, http.MethodPost, "/api/v1/notifications/send", sendBody, token)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Len(t, s.uc.acceptIn, 10)
	})
}

func TestSendBulk(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	body := map[string]any{"payloads": []any{sendBody, sendBody, sendBody}}

	rec := s.do(t, http.MethodPost, "/api/v1/notifications/send-bulk", body, s.token(t, "svc-1", "service"))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var data inbound.BulkAcceptResponse
	decodeSuccess(t, rec, &data)
	assert.Equal(t, 3, data.Accepted)
	require.Len(t, s.uc.bulkIn, 1)
	assert.Len(t, s.uc.bulkIn[0].Payloads, 3)
}

func TestPreferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		caller string
		roles  []string
		want   int
	}{
		{name: "Self", caller: "user-42", want: http.StatusOK},
		{name: "OtherUser", caller: "user-7", want: http.StatusForbidden},
		{name: "Admin", caller: "admin-1", roles: []string{"admin"}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newServer(t)
			rec := s.do(t, http.MethodGet, "/api/v1/notifications/preferences/user-42", nil, s.token(t, tt.caller, tt.roles...))

			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want != http.StatusOK {
				return
			}
			var data inbound.PreferencesResponse
			decodeSuccess(t, rec, &data)
			assert.Equal(t, "user-42", data.UserID)
			assert.True(t, data.PushEnabled)
		})
	}

	t.Run("DisableChannel", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodPost, "/api/v1/notifications/preferences/user-42/disable/email", nil, s.token(t, "user-42"))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data inbound.PreferencesResponse
		decodeSuccess(t, rec, &data)
		assert.False(t, data.EmailEnabled)
		require.Len(t, s.uc.channel, 1)
		assert.Equal(t, usecase.ChannelInput{UserID: "user-42", Channel: "email"}, s.uc.channel[0])
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	t.Run("DefaultWindow", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodGet, "/api/v1/notifications/stats", nil, s.token(t, "ops-1", "ops"))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data inbound.StatsResponse
		decodeSuccess(t, rec, &data)
		assert.Equal(t, "24h", data.Window)
		require.NotNil(t, data.Total)
		assert.Equal(t, int64(4), data.Total.Total)
		assert.Equal(t, []usecase.StatsInput{{}}, s.uc.statsIn)
	})

	t.Run("GroupByChannel", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodGet, "/api/v1/notifications/stats?window=168h&group_by=channel&user_id=u-1", nil, s.token(t, "ops-1", "ops"))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data inbound.StatsResponse
		decodeSuccess(t, rec, &data)
		assert.Equal(t, "channel", data.GroupBy)
		assert.Len(t, data.Groups, 1)
		assert.Equal(t, []usecase.StatsInput{{Window: 168 * time.Hour, UserID: "u-1"}}, s.uc.statsIn)
	})

	t.Run("InvalidGroupBy", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodGet, "/api/v1/notifications/stats?group_by=day", nil, s.token(t, "ops-1", "ops"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeError(t, rec).Error, "group_by")
	})

	t.Run("InvalidWindow", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodGet, "/api/v1/notifications/stats?window=yesterday", nil, s.token(t, "ops-1", "ops"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeError(t, rec).Error, "window")
	})

	t.Run("Forbidden", func(t *testing.T) {
		t.Parallel()

		s := newServer(t)
		rec := s.do(t, http.MethodGet, "/api/v1/notifications/stats", nil, s.token(t, "svc-1", "service"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDevicesAndInbox(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	token := s.token(t, "user-42")

	rec := s.do(t, http.MethodPost, "/api/v1/notifications/devices", map[string]string{
		"token":    "fcm-token-0123456789",
		"platform": "android",
	}, token)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, []usecase.RegisterDeviceInput{{Token: "fcm-token-0123456789", Platform: "android"}}, s.uc.deviceIn)

	rec = s.do(t, http.MethodGet, "/api/v1/notifications/in-app?status=unread&limit=5", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var inbox inbound.InboxResponse
	decodeSuccess(t, rec, &inbox)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, "system", inbox.Notifications[0].Type)

	rec = s.do(t, http.MethodPut, "/api/v1/notifications/in-app/abc/read", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/notifications/in-app/7/read", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEndpointRateLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		path        string
		budget      int
		want        int
		otherMethod string
		otherPath   string
		otherWant   int
	}{
		{
			name:        "MarkReadCountsSuccessfulCalls",
			method:      http.MethodPut,
			path:        "/api/v1/notifications/in-app/7/read",
			budget:      60,
			want:        http.StatusNoContent,
			otherMethod: http.MethodGet,
			otherPath:   "/api/v1/notifications/in-app",
			otherWant:   http.StatusOK,
		},
		{
			name:        "DisableDoesNotSpendEnableBudget",
			method:      http.MethodPost,
			path:        "/api/v1/notifications/preferences/user-42/disable/email",
			budget:      20,
			want:        http.StatusOK,
			otherMethod: http.MethodPost,
			otherPath:   "/api/v1/notifications/preferences/user-42/enable/email",
			otherWant:   http.StatusOK,
		},
		{
			name:        "PreferenceWritesDoNotSpendDeviceRemoval",
			method:      http.MethodPost,
			path:        "/api/v1/notifications/preferences/user-42/enable/push",
			budget:      20,
			want:        http.StatusOK,
			otherMethod: http.MethodDelete,
			otherPath:   "/api/v1/notifications/devices",
			otherWant:   http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newServer(t)
			token := s.token(t, "user-42")
			var body any
			if tt.otherMethod == http.MethodDelete {
				body = map[string]string{"token": "fcm-token-0123456789"}
			}

			for i := range tt.budget {
				rec := s.do(t, tt.method, tt.path, nil, token)
				require.Equal(t, tt.want, rec.Code, "request %d: %s", i+1, rec.Body.String())
			}

			rec := s.do(t, tt.method, tt.path, nil, token)
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)

			rec = s.do(t, tt.otherMethod, tt.otherPath, body, token)
			assert.Equal(t, tt.otherWant, rec.Code, rec.Body.String())
		})
	}
}
