package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// casAttempts bounds how often OpenSession re-reads a table whose row moved
// between the read and the conditional update.
const casAttempts = 3

// SessionGrant is what a successful table login hands back to the caller.
type SessionGrant struct {
	Table     models.Table        `json:"table"`
	Session   models.TableSession `json:"session"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

// SessionValidation is the outcome of checking a table_session cookie
// against the Table row.
type SessionValidation struct {
	Valid  bool          `json:"valid"`
	Table  *models.Table `json:"table,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// SessionService binds anonymous devices to tables. The Table row is the
// only source of truth; the cookie is a bearer capability checked against
// it on every use.
type SessionService struct {
	db     *gorm.DB
	gate   *DeviceGate
	events Broadcaster
	ttl    time.Duration

	now   func() time.Time
	newID func() string
}

func NewSessionService(db *gorm.DB, gate *DeviceGate, events Broadcaster, ttl time.Duration) *SessionService {
	return &SessionService{
		db:     db,
		gate:   gate,
		events: orNop(events),
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// TTL is the lifetime of the capability cookie. The server never consults
// it when authorising.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// OpenSession grants, refreshes or refuses a table session for deviceID.
func (s *SessionService) OpenSession(ctx context.Context, tableID uint, deviceID string) (*SessionGrant, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, utils.Validation("deviceId is required")
	}
	if tableID == 0 {
		return nil, utils.Validation("tableId is required")
	}

	blocked, err := s.gate.IsBlocked(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrDeviceBlocked
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		table, err := s.loadTable(ctx, tableID)
		if err != nil {
			return nil, err
		}

		if table.IsOpen() && table.DeviceID != nil && !table.BoundTo(deviceID) {
			return nil, ErrTableInUse
		}

		seated, err := s.seatedElsewhere(ctx, deviceID, table.ID)
		if err != nil {
			return nil, err
		}
		if seated {
			return nil, ErrDeviceAlreadyInSession
		}

		// Re-login from the device that already holds the table.
		if table.IsOpen() && table.BoundTo(deviceID) && table.CurrentSessionID != nil {
			return s.grant(*table, deviceID), nil
		}

		now := s.now()
		sessionID := s.newID()
		startedAt := now
		if table.IsOpen() {
			// Staff opened the table by hand, or the session id went missing;
			// keep whatever the row already carries.
			if table.CurrentSessionID != nil {
				sessionID = *table.CurrentSessionID
			}
			if table.SessionStartedAt != nil {
				startedAt = *table.SessionStartedAt
			}
		}

		updated, err := s.compareAndBind(ctx, table, deviceID, sessionID, startedAt)
		if err != nil {
			return nil, err
		}
		if !updated {
			continue
		}

		fresh, err := s.loadTable(ctx, tableID)
		if err != nil {
			return nil, err
		}
		s.recordDeviceVisit(ctx, deviceID, fresh.ID, now)

		utils.InfoLogger.WithFields(logrus.Fields{
			"table":      fresh.Number,
			"device_id":  deviceID,
			"session_id": sessionID,
		}).Info("table session opened")
		s.events.Broadcast(kds.EventTableUpdate, fresh)

		return s.grant(*fresh, deviceID), nil
	}

	// The row kept moving under us; whoever won holds the table.
	return nil, ErrTableInUse
}

// compareAndBind writes the binding only if the row still looks exactly
// like the copy OpenSession decided on.
func (s *SessionService) compareAndBind(ctx context.Context, seen *models.Table, deviceID, sessionID string, startedAt time.Time) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ?", seen.ID).
		Where("status = ?", seen.Status)
	q = whereNullable(q, "current_session_id", seen.CurrentSessionID)
	q = whereNullable(q, "device_id", seen.DeviceID)

	res := q.Updates(map[string]interface{}{
		"status":             models.TableOpen,
		"current_session_id": sessionID,
		"device_id":          deviceID,
		"session_started_at": startedAt,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, ErrDeviceAlreadyInSession
		}
		// Drivers without error translation: check whether the device got
		// seated elsewhere in the meantime before reporting a store failure.
		if seated, err := s.seatedElsewhere(ctx, deviceID, seen.ID); err == nil && seated {
			return false, ErrDeviceAlreadyInSession
		}
		return false, fmt.Errorf("bind table session: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ValidateSession runs the triple check: the table exists, it is OPEN, and
// its current session id is the one the token carries.
func (s *SessionService) ValidateSession(ctx context.Context, token *models.TableSession) (SessionValidation, error) {
	if token == nil || token.TableID == 0 || token.SessionID == "" {
		return SessionValidation{Reason: "no table session"}, nil
	}

	var table models.Table
	err := s.db.WithContext(ctx).First(&table, token.TableID).Error
	if err != nil {
		if isNotFound(err) {
			return SessionValidation{Reason: "table no longer exists"}, nil
		}
		return SessionValidation{}, fmt.Errorf("load table: %w", err)
	}

	if !table.IsOpen() {
		return SessionValidation{Table: &table, Reason: "table is closed"}, nil
	}
	if !table.HasSession(token.SessionID) {
		return SessionValidation{Table: &table, Reason: "session has been replaced"}, nil
	}
	return SessionValidation{Valid: true, Table: &table}, nil
}

// CloseSession ends the dining session on a table and orphans every token
// issued for it.
func (s *SessionService) CloseSession(ctx context.Context, tableID uint) (*models.Table, error) {
	table, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ?", table.ID).
		Updates(closedTableColumns()).Error
	if err != nil {
		return nil, fmt.Errorf("close table session: %w", err)
	}
	return s.announceClosed(ctx, tableID)
}

func (s *SessionService) announceClosed(ctx context.Context, tableID uint) (*models.Table, error) {
	closed, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("table", closed.Number).Info("table session closed")
	s.events.Broadcast(kds.EventTableUpdate, closed)
	return closed, nil
}

func closedTableColumns() map[string]interface{} {
	return map[string]interface{}{
		"status":             models.TableClosed,
		"current_session_id": nil,
		"device_id":          nil,
		"session_started_at": nil,
	}
}

// OpenManually lets staff open a table without a device; the first device
// to log in is then bound to it. Opening an OPEN table changes nothing.
func (s *SessionService) OpenManually(ctx context.Context, tableID uint) (*models.Table, error) {
	table, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.IsOpen() {
		return table, nil
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND status = ?", table.ID, models.TableClosed).
		Updates(map[string]interface{}{
			"status":             models.TableOpen,
			"current_session_id": s.newID(),
			"device_id":          nil,
			"session_started_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("open table: %w", res.Error)
	}

	opened, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 1 {
		utils.InfoLogger.WithField("table", opened.Number).Info("table opened by staff")
		s.events.Broadcast(kds.EventTableUpdate, opened)
	}
	return opened, nil
}

// CloseDeviceSession closes whatever table deviceID currently holds.
func (s *SessionService) CloseDeviceSession(ctx context.Context, deviceID string) error {
	var table models.Table
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&table).Error
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("find device table: %w", err)
	}
	_, err = s.CloseSession(ctx, table.ID)
	return err
}

// CloseIfSettled closes the table owning sessionID once every order placed
// in that session is paid or cancelled.
func (s *SessionService) CloseIfSettled(ctx context.Context, sessionID string) (bool, error) {
	var table models.Table
	err := s.db.WithContext(ctx).
		Where("current_session_id = ? AND status = ?", sessionID, models.TableOpen).
		First(&table).Error
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("find session table: %w", err)
	}
	return s.closeIfSettled(ctx, table)
}

// CloseStale closes OPEN tables whose session started before cutoff and
// whose orders are all paid or cancelled.
func (s *SessionService) CloseStale(ctx context.Context, cutoff time.Time) (int, error) {
	var tables []models.Table
	err := s.db.WithContext(ctx).
		Where("status = ? AND session_started_at < ?", models.TableOpen, cutoff).
		Find(&tables).Error
	if err != nil {
		return 0, fmt.Errorf("find stale tables: %w", err)
	}

	closed := 0
	for _, table := range tables {
		ok, err := s.closeIfSettled(ctx, table)
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

// closeIfSettled closes table in one conditional UPDATE: the row must still
// carry the session it was read with, and that session must have no
// unsettled order at the moment of the write.
func (s *SessionService) closeIfSettled(ctx context.Context, table models.Table) (bool, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.Table{}).Where("id = ? AND status = ?", table.ID, models.TableOpen)
	q = whereNullable(q, "current_session_id", table.CurrentSessionID)
	if table.CurrentSessionID != nil {
		pending := unsettledOrders(db.Where("session_id = ?", *table.CurrentSessionID)).Select("1")
		q = q.Where("NOT EXISTS (?)", pending)
	}

	res := q.Updates(closedTableColumns())
	if res.Error != nil {
		return false, fmt.Errorf("close settled table: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if _, err := s.announceClosed(ctx, table.ID); err != nil {
		return true, err
	}
	return true, nil
}

func (s *SessionService) grant(table models.Table, deviceID string) *SessionGrant {
	now := s.now()
	return &SessionGrant{
		Table: table,
		Session: models.TableSession{
			TableID:   table.ID,
			SessionID: *table.CurrentSessionID,
			DeviceID:  deviceID,
			CreatedAt: now,
		},
		ExpiresAt: now.Add(s.ttl),
	}
}

func (s *SessionService) loadTable(ctx context.Context, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("load table: %w", err)
	}
	return &table, nil
}

func (s *SessionService) seatedElsewhere(ctx context.Context, deviceID string, tableID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("device_id = ? AND id <> ? AND status = ?", deviceID, tableID, models.TableOpen).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check device seating: %w", err)
	}
	return count > 0, nil
}

// recordDeviceVisit bumps the device's session counter. Failures are logged
// only; stats never block a login.
func (s *SessionService) recordDeviceVisit(ctx context.Context, deviceID string, tableID uint, now time.Time) {
	stat := models.DeviceStat{
		DeviceID:     deviceID,
		SessionCount: 1,
		LastTableID:  tableID,
		FirstSeenAt:  now,
		LastSeenAt:   now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"session_count": gorm.Expr("session_count + 1"),
			"last_table_id": tableID,
			"last_seen_at":  now,
		}),
	}).Create(&stat).Error
	if err != nil {
		utils.ErrorLogger.WithField("device_id", deviceID).Errorf("record device visit: %v", err)
	}
}

func whereNullable(q *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}

// unsettledOrders narrows scope to orders that are neither cancelled nor
// served and paid.
func unsettledOrders(scope *gorm.DB) *gorm.DB {
	return scope.Model(&models.Order{}).
		Where("status <> ?", models.OrderCancelled).
		Where("NOT (status = ? AND payment_status = ?)", models.OrderServed, models.PaymentPaid)
}

func countUnsettledOrders(scope *gorm.DB) (int64, error) {
	var count int64
	if err := unsettledOrders(scope).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count unsettled orders: %w", err)
	}
	return count, nil
}
