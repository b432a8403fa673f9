package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/validator"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

var errProvider = errors.New("provider unavailable")

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return s.n.Inc() }

// fakeSender records every call and answers from a script.
type fakeSender struct {
	mu    sync.Mutex
	calls []time.Time
	clk   clock.Clocker
	// errs is consumed one per call; the last error repeats.
	errs []error
}

func (f *fakeSender) Send(_ context.Context, _ string, _ entity.NotificationPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, f.clk.Now())
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	if len(f.errs) > 1 {
		f.errs = f.errs[1:]
	}
	return err
}

func (f *fakeSender) Calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.calls)
}

type fakeDB struct {
	mu      sync.Mutex
	prefs   map[string]entity.NotificationPreferences
	logs    []entity.DeliveryLogEntry
	prefErr error
	logErr  error

	contacts []entity.Contact
	devices  []entity.Device
	inbox    []entity.InboxItem
	counts   entity.DeliveryCounts
	grouped  []entity.DeliveryCounts
	failed   []entity.DeliveryLogEntry
	lastFail entity.FailedFilter
	lastStat entity.StatsFilter
	deleted  [][]int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{prefs: map[string]entity.NotificationPreferences{}}
}

func (f *fakeDB) GetPreferences(_ context.Context, userID string) (*entity.NotificationPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.prefErr != nil {
		return nil, f.prefErr
	}
	p, ok := f.prefs[userID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &p, nil
}

func (f *fakeDB) CreatePreferences(_ context.Context, p entity.NotificationPreferences) (*entity.NotificationPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.prefs[p.UserID]; ok {
		return nil, goerror.ErrConflict
	}
	f.prefs[p.UserID] = p
	return &p, nil
}

func (f *fakeDB) UpsertPreferences(_ context.Context, p entity.NotificationPreferences) (*entity.NotificationPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if old, ok := f.prefs[p.UserID]; ok {
		p.CreatedAt = old.CreatedAt
	}
	f.prefs[p.UserID] = p
	return &p, nil
}

func (f *fakeDB) SetPreferenceChannel(_ context.Context, userID string, ch entity.Channel, enabled bool, now time.Time) (*entity.NotificationPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.prefs[userID]
	if !ok {
		p = entity.DefaultPreferences(userID, now)
	}
	p = p.Set(ch, enabled)
	p.UpdatedAt = now
	f.prefs[userID] = p
	return &p, nil
}

func (f *fakeDB) CreateDeliveryLog(_ context.Context, e entity.DeliveryLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, e)
	return nil
}

func (f *fakeDB) Logs() []entity.DeliveryLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.logs)
}

func (f *fakeDB) CountDeliveries(_ context.Context, sf entity.StatsFilter) (entity.DeliveryCounts, error) {
	f.lastStat = sf
	return f.counts, nil
}

func (f *fakeDB) CountDeliveriesByChannel(_ context.Context, sf entity.StatsFilter) ([]entity.DeliveryCounts, error) {
	f.lastStat = sf
	return f.grouped, nil
}

func (f *fakeDB) CountDeliveriesByType(_ context.Context, sf entity.StatsFilter) ([]entity.DeliveryCounts, error) {
	f.lastStat = sf
	return f.grouped, nil
}

func (f *fakeDB) ListFailedDeliveries(_ context.Context, ff entity.FailedFilter) ([]entity.DeliveryLogEntry, error) {
	f.lastFail = ff
	return f.failed, nil
}

func (f *fakeDB) ListDeliveryLogsBefore(_ context.Context, before time.Time, limit int32) ([]entity.DeliveryLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.DeliveryLogEntry
	for _, e := range f.logs {
		if e.CreatedAt.Before(before) && len(out) < int(limit) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeDB) DeleteDeliveryLogs(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, ids)
	kept := f.logs[:0]
	var n int64
	for _, e := range f.logs {
		if slices.Contains(ids, e.ID) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.logs = kept
	return n, nil
}

func (f *fakeDB) RegisterUserDevice(_ context.Context, d entity.Device) error {
	f.devices = append(f.devices, d)
	return nil
}

func (f *fakeDB) RemoveUserDevice(_ context.Context, userID, token string) (bool, error) {
	for i, d := range f.devices {
		if d.UserID == userID && d.Token == token {
			f.devices = slices.Delete(f.devices, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) UpsertContact(_ context.Context, c entity.Contact) error {
	f.contacts = append(f.contacts, c)
	return nil
}

func (f *fakeDB) ListInbox(_ context.Context, userID string, status entity.InboxStatus, limit, offset int32) ([]entity.InboxItem, error) {
	var out []entity.InboxItem
	for _, it := range f.inbox {
		if it.UserID != userID {
			continue
		}
		if status == entity.InboxStatusUnread && it.ReadAt != nil {
			continue
		}
		if status == entity.InboxStatusRead && it.ReadAt == nil {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeDB) MarkInboxRead(_ context.Context, userID string, id int64, at time.Time) (bool, error) {
	for i, it := range f.inbox {
		if it.ID == id && it.UserID == userID {
			f.inbox[i].ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

type fakeCache struct {
	mu      sync.Mutex
	prefs   map[string]entity.NotificationPreferences
	getErr  error
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{prefs: map[string]entity.NotificationPreferences{}}
}

func (f *fakeCache) GetPreferences(_ context.Context, userID string) (*entity.NotificationPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.prefs[userID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCache) SetPreferences(_ context.Context, p entity.NotificationPreferences, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prefs[p.UserID] = p
	return nil
}

func (f *fakeCache) DeletePreferences(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.prefs, userID)
	f.deletes++
	return nil
}

type fakeMQ struct {
	mu       sync.Mutex
	failures []entity.DeliveryFailure
}

func (f *fakeMQ) PublishDeliveryFailed(_ context.Context, df entity.DeliveryFailure) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = append(f.failures, df)
	return nil
}

func (f *fakeMQ) Failures() []entity.DeliveryFailure {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.failures)
}

type fakeArchive struct {
	keys    []string
	entries [][]entity.DeliveryLogEntry
	err     error
}

func (f *fakeArchive) ArchiveDeliveryLogs(_ context.Context, key string, entries []entity.DeliveryLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.entries = append(f.entries, entries)
	return nil
}

type harness struct {
	uc      *Usecase
	db      *fakeDB
	cache   *fakeCache
	mq      *fakeMQ
	archive *fakeArchive
	clock   *clock.Fake
	push    *fakeSender
	email   *fakeSender
	inApp   *fakeSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	fc := clock.NewFake(t0)
	h := &harness{
		db:      newFakeDB(),
		cache:   newFakeCache(),
		mq:      &fakeMQ{},
		archive: &fakeArchive{},
		clock:   fc,
		push:    &fakeSender{clk: fc},
		email:   &fakeSender{clk: fc},
		inApp:   &fakeSender{clk: fc},
	}

	h.uc = NewNotification(Dependency{
		RepoDB:      h.db,
		RepoCache:   h.cache,
		RepoMQ:      h.mq,
		RepoArchive: h.archive,
		Senders: map[entity.Channel]Sender{
			entity.ChannelPush:  h.push,
			entity.ChannelEmail: h.email,
			entity.ChannelInApp: h.inApp,
		},
		UID:       &seqID{},
		Clock:     fc,
		Validator: v,
		Goroutine: goroutine.NewManager(4),
	})

	return h
}

func validPayload(recipient string) entity.NotificationPayload {
	return entity.NotificationPayload{
		RecipientID: recipient,
		Type:        entity.TypeTicketCreated,
		Title:       "New ticket: printer on fire",
		Message:     "Alice opened ticket \"printer on fire\".",
		TicketID:    "T-1",
	}
}
