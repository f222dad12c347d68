package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is the etl_checkpoints table: one row per account.
type Row struct {
	Account   string `gorm:"primaryKey;size:64"`
	LastStart int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (Row) TableName() string {
	return "etl_checkpoints"
}

// GormStore keeps checkpoints in a database table. A single-row upsert is
// atomic, which is all the crash guarantee needs.
type GormStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewGormStore migrates the checkpoint table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoint table: %w", err)
	}
	return &GormStore{DB: db, Now: time.Now}, nil
}

func (s *GormStore) Get(ctx context.Context, account string) (int64, error) {
	var row Row
	err := s.DB.WithContext(ctx).Where("account = ?", account).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StartOfDay(s.now()), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint for %s: %w", account, err)
	}
	return row.LastStart, nil
}

func (s *GormStore) Set(ctx context.Context, account string, ts int64) error {
	row := &Row{Account: account, LastStart: ts, UpdatedAt: s.now()}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_start", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", account, err)
	}
	return nil
}

func (s *GormStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
