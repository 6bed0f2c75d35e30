package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GovernanceRecord is the single table behind the SQL store. Data holds the
// JSON-encoded record; Status mirrors the lifecycle state for alerts,
// penalties and appeals.
type GovernanceRecord struct {
	Kind      string `gorm:"primaryKey;size:32"`
	ID        string `gorm:"primaryKey;size:128"`
	Status    string `gorm:"index;size:32"`
	Data      []byte
	UpdatedAt time.Time
}

func (GovernanceRecord) TableName() string {
	return "governance_record"
}

type sqlBackend struct {
	db *gorm.DB
}

// NewSQLStore opens a sqlite-backed store at path. An empty path opens a
// private in-memory database.
func NewSQLStore(path string) (Store, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if path == "" {
		// the in-memory database lives as long as its one connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormStore(db)
}

// NewGormStore uses an already opened gorm connection and migrates the
// record table.
func NewGormStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&GovernanceRecord{}); err != nil {
		return nil, fmt.Errorf("migrate governance_record: %w", err)
	}
	return &recordStore{b: &sqlBackend{db: db}}, nil
}

func (s *sqlBackend) load(ctx context.Context, kind, id string) ([]byte, bool, error) {
	var row GovernanceRecord
	err := s.db.WithContext(ctx).
		Where("kind = ? AND id = ?", kind, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return row.Data, true, nil
}

func (s *sqlBackend) list(ctx context.Context, kind string) ([][]byte, error) {
	var rows []GovernanceRecord
	if err := s.db.WithContext(ctx).Where("kind = ?", kind).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	out := make([][]byte, len(rows))
	for i, row := range rows {
		out[i] = row.Data
	}
	return out, nil
}

func (s *sqlBackend) commit(ctx context.Context, recs []record) error {
	now := time.Now().UTC()
	// one row per key; an upsert may not touch the same row twice
	pos := make(map[[2]string]int, len(recs))
	rows := make([]GovernanceRecord, 0, len(recs))
	for _, r := range recs {
		row := GovernanceRecord{Kind: r.kind, ID: r.id, Status: r.status, Data: r.data, UpdatedAt: now}
		if i, dup := pos[[2]string{r.kind, r.id}]; dup {
			rows[i] = row
			continue
		}
		pos[[2]string{r.kind, r.id}] = len(rows)
		rows = append(rows, row)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows)
		if result.Error != nil {
			return fmt.Errorf("commit %d records: %w", len(rows), result.Error)
		}
		return nil
	})
}

func (s *sqlBackend) close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
