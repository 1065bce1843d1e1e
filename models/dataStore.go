package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/agent_backend/utils"
	"gorm.io/gorm"
)

// DataStore is the read/write boundary between the agent core and the
// relational store. The orchestrator and HTTP handlers depend on this
// interface, never on gorm directly, so tests substitute an in-memory fake.
type DataStore interface {
	FetchItems(ctx context.Context, scope []string) ([]*Item, error)
	FetchItem(ctx context.Context, itemId string) (*Item, error)
	FetchSalesHistory(ctx context.Context, itemId string, since time.Time) ([]SalesRecord, error)
	FetchSuppliers(ctx context.Context, itemId string) ([]*Supplier, error)
	FetchPurchaseHistory(ctx context.Context, itemId string) ([]PurchaseRecord, error)
	FetchTrainingHistory(ctx context.Context, limit int) ([]PurchaseRecord, error)
	FetchActiveTasks(ctx context.Context) ([]*Task, error)
	AppendDecisions(ctx context.Context, cycleId string, decisions []DecisionLog) error
	SaveCycleRun(ctx context.Context, run *CycleRun) error
	LastCycleRun(ctx context.Context) (*CycleRun, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FetchItems(ctx context.Context, scope []string) ([]*Item, error) {
	var items []*Item
	dbCtx := s.db.WithContext(ctx).Preload("Batches").Where("is_active = ?", true)
	if len(scope) > 0 {
		dbCtx = dbCtx.Where("id IN ?", scope)
	}
	if err := dbCtx.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) FetchItem(ctx context.Context, itemId string) (*Item, error) {
	var item Item
	err := s.db.WithContext(ctx).Preload("Batches").Where("id = ?", itemId).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *GormStore) FetchSalesHistory(ctx context.Context, itemId string, since time.Time) ([]SalesRecord, error) {
	var records []SalesRecord
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND sale_date >= ?", itemId, since).
		Order("sale_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) FetchSuppliers(ctx context.Context, itemId string) ([]*Supplier, error) {
	var suppliers []*Supplier
	err := s.db.WithContext(ctx).
		Joins("JOIN item_suppliers ON item_suppliers.supplier_id = suppliers.id").
		Where("item_suppliers.item_id = ? AND suppliers.is_active = ?", itemId, true).
		Order("suppliers.id ASC").
		Find(&suppliers).Error
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *GormStore) FetchPurchaseHistory(ctx context.Context, itemId string) ([]PurchaseRecord, error) {
	var records []PurchaseRecord
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemId).
		Order("ordered_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FetchTrainingHistory returns the most recent purchase outcomes across all
// items, oldest first, for scorer training.
func (s *GormStore) FetchTrainingHistory(ctx context.Context, limit int) ([]PurchaseRecord, error) {
	var records []PurchaseRecord
	dbCtx := s.db.WithContext(ctx).Order("ordered_at DESC")
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}
	if err := dbCtx.Find(&records).Error; err != nil {
		return nil, err
	}
	// reverse to ascending order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (s *GormStore) FetchActiveTasks(ctx context.Context) ([]*Task, error) {
	var tasks []*Task
	err := s.db.WithContext(ctx).
		Where("status IN ?", []TaskStatus{TaskStatusTodo, TaskStatusInProgress}).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// AppendDecisions writes one batch of decision rows atomically. The batch is
// everything one item (or the cycle-level task scope) emitted this cycle, so
// a failure leaves no orphaned half-written records.
func (s *GormStore) AppendDecisions(ctx context.Context, cycleId string, decisions []DecisionLog) error {
	if len(decisions) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range decisions {
			decisions[i].CycleId = cycleId
			if err := tx.Create(&decisions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) SaveCycleRun(ctx context.Context, run *CycleRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) LastCycleRun(ctx context.Context) (*CycleRun, error) {
	var run CycleRun
	err := s.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
