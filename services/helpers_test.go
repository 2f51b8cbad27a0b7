package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qr-table-order/database"
	"github.com/yeremiapane/qr-table-order/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	sessionTTL = 6 * time.Hour
	tokenTTL   = time.Hour
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type recordedEvent struct {
	Event string
	Data  interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingBroadcaster) Broadcast(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, Data: data})
}

func (r *recordingBroadcaster) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

type memAudioStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemAudioStore() *memAudioStore {
	return &memAudioStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memAudioStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memAudioStore) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("no object %q", key)
	}
	return data, m.types[key], nil
}

// fixture wires every service against one test database.
type fixture struct {
	db       *gorm.DB
	events   *recordingBroadcaster
	gate     *DeviceGate
	sessions *SessionService
	settings *SettingsService
	rewards  *RewardService
	orders   *OrderService
	requests *RequestService
	tables   *TableService
	users    *UserService
	audio    *memAudioStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	events := &recordingBroadcaster{}
	gate := NewDeviceGate(db, events)
	sessions := NewSessionService(db, gate, events, sessionTTL)
	settings := NewSettingsService(db)
	rewards := NewRewardService(db, settings)
	audio := newMemAudioStore()

	return &fixture{
		db:       db,
		events:   events,
		gate:     gate,
		sessions: sessions,
		settings: settings,
		rewards:  rewards,
		orders:   NewOrderService(db, sessions, rewards, events),
		requests: NewRequestService(db, sessions, audio, events),
		tables:   NewTableService(db, events),
		users:    NewUserService(db, "test-secret", tokenTTL),
		audio:    audio,
	}
}

func (f *fixture) createTable(t *testing.T, number string) *models.Table {
	t.Helper()
	table, err := f.tables.Create(context.Background(), number)
	require.NoError(t, err)
	return table
}

// seat opens a table session for deviceID and returns the cookie payload.
func (f *fixture) seat(t *testing.T, tableID uint, deviceID string) *models.TableSession {
	t.Helper()
	grant, err := f.sessions.OpenSession(context.Background(), tableID, deviceID)
	require.NoError(t, err)
	return &grant.Session
}

func (f *fixture) reloadTable(t *testing.T, id uint) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, f.db.First(&table, id).Error)
	return table
}
