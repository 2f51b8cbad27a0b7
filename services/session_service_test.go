package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
)

func TestOpenSessionBindsClosedTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "5")

	grant, err := f.sessions.OpenSession(ctx, table.ID, "D1")
	require.NoError(t, err)

	assert.Equal(t, models.TableOpen, grant.Table.Status)
	require.NotNil(t, grant.Table.DeviceID)
	assert.Equal(t, "D1", *grant.Table.DeviceID)
	require.NotNil(t, grant.Table.CurrentSessionID)
	assert.Equal(t, *grant.Table.CurrentSessionID, grant.Session.SessionID)
	assert.Equal(t, table.ID, grant.Session.TableID)
	assert.Equal(t, "D1", grant.Session.DeviceID)
	assert.WithinDuration(t, time.Now().Add(sessionTTL), grant.ExpiresAt, time.Minute)
	assert.Contains(t, f.events.names(), kds.EventTableUpdate)

	var stat models.DeviceStat
	require.NoError(t, f.db.First(&stat, "device_id = ?", "D1").Error)
	assert.Equal(t, 1, stat.SessionCount)
	assert.Equal(t, table.ID, stat.LastTableID)
}

func TestOpenSessionRejectsSecondDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "5")
	f.seat(t, table.ID, "D1")

	_, err := f.sessions.OpenSession(ctx, table.ID, "D2")
	assert.ErrorIs(t, err, ErrTableInUse)

	stored := f.reloadTable(t, table.ID)
	assert.Equal(t, "D1", *stored.DeviceID)
}

func TestOpenSessionIsIdempotentForBoundDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "5")
	first := f.seat(t, table.ID, "D1")

	again, err := f.sessions.OpenSession(ctx, table.ID, "D1")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, again.Session.SessionID)

	var stat models.DeviceStat
	require.NoError(t, f.db.First(&stat, "device_id = ?", "D1").Error)
	assert.Equal(t, 1, stat.SessionCount, "a re-login is not a new visit")
}

func TestOpenSessionRejectsDeviceSeatedElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableA := f.createTable(t, "A")
	tableB := f.createTable(t, "B")
	f.seat(t, tableA.ID, "D1")

	_, err := f.sessions.OpenSession(ctx, tableB.ID, "D1")
	assert.ErrorIs(t, err, ErrDeviceAlreadyInSession)

	stored := f.reloadTable(t, tableB.ID)
	assert.Equal(t, models.TableClosed, stored.Status)
	assert.Nil(t, stored.DeviceID)
	assert.Nil(t, stored.CurrentSessionID)
}

func TestOpenSessionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "1")

	_, err := f.sessions.OpenSession(ctx, 999, "D1")
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = f.sessions.OpenSession(ctx, table.ID, "  ")
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = f.gate.Block(ctx, "BAD", "spam")
	require.NoError(t, err)
	_, err = f.sessions.OpenSession(ctx, table.ID, "BAD")
	assert.ErrorIs(t, err, ErrDeviceBlocked)
	assert.Equal(t, models.TableClosed, f.reloadTable(t, table.ID).Status)
}

func TestOpenSessionMintsFreshSessionAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "5")

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		session := f.seat(t, table.ID, "D1")
		assert.False(t, seen[session.SessionID], "session id %s reused", session.SessionID)
		seen[session.SessionID] = true

		_, err := f.sessions.CloseSession(ctx, table.ID)
		require.NoError(t, err)
	}
}

func TestOpenSessionBindsManuallyOpenedTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "7")

	opened, err := f.sessions.OpenManually(ctx, table.ID)
	require.NoError(t, err)
	require.NotNil(t, opened.CurrentSessionID)
	assert.Nil(t, opened.DeviceID)

	session := f.seat(t, table.ID, "D9")
	assert.Equal(t, *opened.CurrentSessionID, session.SessionID)

	again, err := f.sessions.OpenManually(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, "D9", *again.DeviceID, "opening an open table changes nothing")
}

func TestTableLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "5")

	s1 := f.seat(t, table.ID, "D1")

	_, err := f.sessions.OpenSession(ctx, table.ID, "D2")
	require.ErrorIs(t, err, ErrTableInUse)

	closed, err := f.sessions.CloseSession(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableClosed, closed.Status)
	assert.Nil(t, closed.DeviceID)
	assert.Nil(t, closed.CurrentSessionID)
	assert.Nil(t, closed.SessionStartedAt)

	check, err := f.sessions.ValidateSession(ctx, s1)
	require.NoError(t, err)
	assert.False(t, check.Valid)

	s2 := f.seat(t, table.ID, "D2")
	assert.NotEqual(t, s1.SessionID, s2.SessionID)

	check, err = f.sessions.ValidateSession(ctx, s2)
	require.NoError(t, err)
	assert.True(t, check.Valid)
}

func TestValidateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "3")
	session := f.seat(t, table.ID, "D1")

	tests := []struct {
		name  string
		token *models.TableSession
		valid bool
	}{
		{"current session", session, true},
		{"nil token", nil, false},
		{"unknown table", &models.TableSession{TableID: 404, SessionID: session.SessionID, DeviceID: "D1"}, false},
		{"replaced session", &models.TableSession{TableID: table.ID, SessionID: "old", DeviceID: "D1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := f.sessions.ValidateSession(ctx, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, check.Valid)
			if !tt.valid {
				assert.NotEmpty(t, check.Reason)
			}
		})
	}
}

func TestOpenSessionConcurrentDevices(t *testing.T) {
	f := newFixture(t)
	table := f.createTable(t, "9")

	devices := []string{"D1", "D2", "D3", "D4"}
	errs := make([]error, len(devices))

	var wg sync.WaitGroup
	for i, device := range devices {
		wg.Add(1)
		go func(i int, device string) {
			defer wg.Done()
			_, errs[i] = f.sessions.OpenSession(context.Background(), table.ID, device)
		}(i, device)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, ErrTableInUse)
	}
	assert.Equal(t, 1, winners)

	stored := f.reloadTable(t, table.ID)
	assert.Equal(t, models.TableOpen, stored.Status)
	require.NotNil(t, stored.DeviceID)
	assert.Contains(t, devices, *stored.DeviceID)
}

func TestBoundTablesAreAlwaysOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, no := range []string{"1", "2", "3"} {
		table := f.createTable(t, no)
		f.seat(t, table.ID, "D"+no)
	}
	_, err := f.sessions.CloseSession(ctx, 2)
	require.NoError(t, err)

	var tables []models.Table
	require.NoError(t, f.db.Find(&tables).Error)
	for _, table := range tables {
		if table.DeviceID != nil {
			assert.Equal(t, models.TableOpen, table.Status, "table %s", table.Number)
		}
	}
}

func TestCloseIfSettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "4")
	session := f.seat(t, table.ID, "D1")

	order, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		Session: session,
		Items:   []models.OrderLine{{Name: "Tea", Qty: 1}},
		Total:   2,
	})
	require.NoError(t, err)

	closed, err := f.sessions.CloseIfSettled(ctx, session.SessionID)
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, f.db.Model(order).Update("status", models.OrderCancelled).Error)

	closed, err = f.sessions.CloseIfSettled(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, models.TableClosed, f.reloadTable(t, table.ID).Status)
}

func TestCloseStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle := f.createTable(t, "1")
	busy := f.createTable(t, "2")
	fresh := f.createTable(t, "3")
	unpaid := f.createTable(t, "4")

	f.sessions.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	f.seat(t, idle.ID, "D1")
	busySession := f.seat(t, busy.ID, "D2")
	unpaidSession := f.seat(t, unpaid.ID, "D4")
	f.sessions.now = time.Now
	f.seat(t, fresh.ID, "D3")

	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		Session: busySession,
		Items:   []models.OrderLine{{Name: "Soup", Qty: 1}},
		Total:   5,
	})
	require.NoError(t, err)

	served, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		Session: unpaidSession,
		Items:   []models.OrderLine{{Name: "Momo", Qty: 2}},
		Total:   9,
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", served.ID).
		Update("status", models.OrderServed).Error)

	closed, err := f.sessions.CloseStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	assert.Equal(t, models.TableClosed, f.reloadTable(t, idle.ID).Status)
	assert.Equal(t, models.TableOpen, f.reloadTable(t, busy.ID).Status)
	assert.Equal(t, models.TableOpen, f.reloadTable(t, fresh.ID).Status)
	assert.Equal(t, models.TableOpen, f.reloadTable(t, unpaid.ID).Status, "served but unpaid keeps the table")

	check, err := f.sessions.ValidateSession(ctx, unpaidSession)
	require.NoError(t, err)
	assert.True(t, check.Valid)
}

func TestCloseIfSettledRechecksAtWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "1")
	session := f.seat(t, table.ID, "D1")

	// The sweeper read the table before the order arrived.
	snapshot := f.reloadTable(t, table.ID)

	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		Session: session,
		Items:   []models.OrderLine{{Name: "Tea", Qty: 1}},
		Total:   2,
	})
	require.NoError(t, err)

	ok, err := f.sessions.closeIfSettled(ctx, snapshot)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.TableOpen, f.reloadTable(t, table.ID).Status)
}

func TestPlaceOrderAfterCloseIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "1")
	session := f.seat(t, table.ID, "D1")

	ok, err := f.sessions.closeIfSettled(ctx, f.reloadTable(t, table.ID))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{
		Session: session,
		Items:   []models.OrderLine{{Name: "Tea", Qty: 1}},
		Total:   2,
	})
	assert.ErrorIs(t, err, ErrInvalidSession)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}
