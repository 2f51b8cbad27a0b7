package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qr-table-order/config"
	"github.com/yeremiapane/qr-table-order/database"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/router"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type server struct {
	t      *testing.T
	deps   router.Deps
	engine *gin.Engine
}

func newServer(t *testing.T, tweak func(*config.Config)) *server {
	t.Helper()
	cfg := &config.Config{
		GinMode:         gin.TestMode,
		DBDriver:        "sqlite",
		DBDSN:           fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		JWTSecret:       "integration-secret",
		AuthTokenTTL:    time.Hour,
		TableSessionTTL: 6 * time.Hour,
		CountryHeader:   "CF-IPCountry",
		LoginRatePerMin: 1000,
		AdminUsername:   "admin",
		AdminPassword:   "admin-password",
	}
	if tweak != nil {
		tweak(cfg)
	}

	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedAdmin(db, cfg.AdminUsername, cfg.AdminPassword))

	deps := newDeps(cfg, db, kds.NewHub(), nil)
	return &server{t: t, deps: deps, engine: router.SetupRouter(deps)}
}

func (s *server) send(method, path string, body interface{}, auth string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *server) json(w *httptest.ResponseRecorder, into interface{}) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), into), w.Body.String())
}

func (s *server) login(username, password string) string {
	s.t.Helper()
	w := s.send(http.MethodPost, "/auth/login", gin.H{"username": username, "password": password}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	s.json(w, &res)
	return res.Token
}

// hire creates a staff account through the admin API and logs it in.
func (s *server) hire(adminToken string, role models.Role) string {
	s.t.Helper()
	username := "staff-" + string(role)
	w := s.send(http.MethodPost, "/admin/users", gin.H{"username": username, "password": "password123", "role": role}, adminToken)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return s.login(username, "password123")
}

func (s *server) seat(tableID uint, deviceID string) *http.Cookie {
	s.t.Helper()
	w := s.send(http.MethodPost, "/session/login", gin.H{"tableId": tableID, "deviceId": deviceID}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == "table_session" {
			return c
		}
	}
	s.t.Fatal("table_session cookie missing")
	return nil
}

func (s *server) advance(token string, orderID uint, field, value string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.send(http.MethodPut, "/orders", gin.H{"id": orderID, field: value}, token)
}

func TestDiningSessionEndToEnd(t *testing.T) {
	s := newServer(t, func(cfg *config.Config) { cfg.AutoCloseOnPaid = true })

	admin := s.login("admin", "admin-password")
	chef := s.hire(admin, models.RoleChef)
	waiter := s.hire(admin, models.RoleStaff)
	counter := s.hire(admin, models.RoleCounter)

	w := s.send(http.MethodPut, "/admin/settings", gin.H{"loyaltyPointRate": 0.1}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.send(http.MethodPost, "/admin/tables", gin.H{"number": "5"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var table models.Table
	s.json(w, &table)

	cookie := s.seat(table.ID, "D1")

	w = s.send(http.MethodPost, "/session/login", gin.H{"tableId": table.ID, "deviceId": "D2"}, "")
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.send(http.MethodPost, "/orders", gin.H{
		"items":         []gin.H{{"name": "Chicken Momo", "qty": 2}, {"name": "Lemon Tea", "qty": 1}},
		"total":         25.5,
		"paymentMethod": "cash",
	}, "", cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	s.json(w, &order)
	assert.Equal(t, "5", order.TableNo)
	assert.Equal(t, models.OrderPending, order.Status)

	w = s.advance(waiter, order.ID, "status", "PREPARING")
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Equal(t, http.StatusOK, s.advance(chef, order.ID, "status", "PREPARING").Code)
	require.Equal(t, http.StatusOK, s.advance(chef, order.ID, "status", "READY").Code)

	w = s.advance(counter, order.ID, "paymentStatus", "PAID")
	assert.Equal(t, http.StatusConflict, w.Code, "payment before the order is served")

	require.Equal(t, http.StatusOK, s.advance(waiter, order.ID, "status", "SERVED").Code)

	w = s.send(http.MethodPost, "/requests", gin.H{"type": "REQUEST_BILL"}, "", cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bill models.ServiceRequest
	s.json(w, &bill)
	assert.Equal(t, "5", bill.TableNo)

	w = s.send(http.MethodPatch, "/requests", gin.H{"id": bill.ID, "status": "COMPLETED"}, waiter)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.advance(counter, order.ID, "paymentStatus", "PAID")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.json(w, &order)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)

	// The last settled order closes the table and the cookie dies with it.
	w = s.send(http.MethodGet, fmt.Sprintf("/admin/tables/%d", table.ID), nil, waiter)
	require.Equal(t, http.StatusOK, w.Code)
	s.json(w, &table)
	assert.Equal(t, models.TableClosed, table.Status)
	assert.Nil(t, table.DeviceID)

	w = s.send(http.MethodPost, "/orders", gin.H{"items": []gin.H{{"name": "Lemon Tea", "qty": 1}}, "total": 3}, "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.send(http.MethodGet, "/admin/rewards/D1", nil, counter)
	require.Equal(t, http.StatusOK, w.Code)
	var points struct {
		Points float64 `json:"points"`
	}
	s.json(w, &points)
	assert.InDelta(t, 2.55, points.Points, 0.001)

	// A new guest gets a fresh session on the same table.
	next := s.seat(table.ID, "D2")
	assert.NotEqual(t, cookie.Value, next.Value)
}

func TestBlockingRevokesTableWhenConfigured(t *testing.T) {
	s := newServer(t, func(cfg *config.Config) { cfg.RevokeOnBlock = true })
	admin := s.login("admin", "admin-password")

	table, err := s.deps.Tables.Create(context.Background(), "9")
	require.NoError(t, err)
	s.seat(table.ID, "D9")

	w := s.send(http.MethodPost, "/admin/devices", gin.H{"deviceId": "D9", "action": "BLOCK"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	reloaded, err := s.deps.Tables.Get(context.Background(), table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableClosed, reloaded.Status)

	w = s.send(http.MethodPost, "/session/login", gin.H{"tableId": table.ID, "deviceId": "D9"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The table is free for everyone else.
	s.seat(table.ID, "D10")
}

func TestOnlineOrderNeedsNoTable(t *testing.T) {
	s := newServer(t, nil)

	w := s.send(http.MethodPost, "/orders", gin.H{
		"isOnlineOrder": true,
		"deviceName":    "Pixel 8",
		"location":      "27.7172,85.3240",
		"items":         []gin.H{{"name": "Veg Momo", "qty": 1}},
		"total":         8,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	s.json(w, &order)
	assert.Equal(t, models.OnlineTableNo, order.TableNo)
	assert.Nil(t, order.SessionID)

	orders, err := s.deps.Orders.ListOrders(context.Background(), services.OrderFilter{TableNo: models.OnlineTableNo})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
