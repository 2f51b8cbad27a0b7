package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
)

// DashboardStats is the at-a-glance summary for the admin dashboard.
type DashboardStats struct {
	TablesOpen      int64                        `json:"tablesOpen"`
	TablesClosed    int64                        `json:"tablesClosed"`
	OrdersByStatus  map[models.OrderStatus]int64 `json:"ordersByStatus"`
	UnpaidServed    int64                        `json:"unpaidServed"`
	PendingRequests int64                        `json:"pendingRequests"`
	BlockedDevices  int64                        `json:"blockedDevices"`
}

type TableService struct {
	db     *gorm.DB
	events Broadcaster
}

func NewTableService(db *gorm.DB, events Broadcaster) *TableService {
	return &TableService{db: db, events: orNop(events)}
}

func (s *TableService) Create(ctx context.Context, number string) (*models.Table, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, utils.Validation("number is required")
	}
	if strings.EqualFold(number, models.OnlineTableNo) {
		return nil, utils.Validation(fmt.Sprintf("%q is reserved for online orders", models.OnlineTableNo))
	}

	table := models.Table{Number: number, Status: models.TableClosed}
	if err := s.db.WithContext(ctx).Create(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTableNumberTaken
		}
		return nil, fmt.Errorf("create table: %w", err)
	}

	utils.InfoLogger.WithField("table", table.Number).Info("table created")
	s.events.Broadcast(kds.EventTableUpdate, table)
	return &table, nil
}

func (s *TableService) List(ctx context.Context) ([]models.Table, error) {
	tables := []models.Table{}
	if err := s.db.WithContext(ctx).Order("number asc").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (s *TableService) Get(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("load table: %w", err)
	}
	return &table, nil
}

// Delete removes a table once nothing ordered at it is left unsettled.
func (s *TableService) Delete(ctx context.Context, id uint) error {
	table, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	unsettled, err := countUnsettledOrders(s.db.WithContext(ctx).Where("table_no = ?", table.Number))
	if err != nil {
		return err
	}
	if unsettled > 0 {
		return ErrTableHasActiveOrders
	}

	if err := s.db.WithContext(ctx).Delete(&models.Table{}, table.ID).Error; err != nil {
		return fmt.Errorf("delete table: %w", err)
	}

	utils.InfoLogger.WithField("table", table.Number).Info("table deleted")
	s.events.Broadcast(kds.EventTableUpdate, map[string]interface{}{
		"id":      table.ID,
		"number":  table.Number,
		"deleted": true,
	})
	return nil
}

func (s *TableService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{OrdersByStatus: map[models.OrderStatus]int64{}}

	if err := db.Model(&models.Table{}).Where("status = ?", models.TableOpen).Count(&stats.TablesOpen).Error; err != nil {
		return nil, fmt.Errorf("count open tables: %w", err)
	}
	if err := db.Model(&models.Table{}).Where("status = ?", models.TableClosed).Count(&stats.TablesClosed).Error; err != nil {
		return nil, fmt.Errorf("count closed tables: %w", err)
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	for _, row := range rows {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	err := db.Model(&models.Order{}).
		Where("status = ? AND payment_status = ?", models.OrderServed, models.PaymentPending).
		Count(&stats.UnpaidServed).Error
	if err != nil {
		return nil, fmt.Errorf("count unpaid orders: %w", err)
	}
	if err := db.Model(&models.ServiceRequest{}).Where("status = ?", models.RequestPending).Count(&stats.PendingRequests).Error; err != nil {
		return nil, fmt.Errorf("count pending requests: %w", err)
	}
	if err := db.Model(&models.BlockedDevice{}).Count(&stats.BlockedDevices).Error; err != nil {
		return nil, fmt.Errorf("count blocked devices: %w", err)
	}
	return stats, nil
}
