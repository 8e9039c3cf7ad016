package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var ErrEmptyKey = errors.New("store: scope and name are required")

// Flag is one small piece of client state that outlives a page.
type Flag struct {
	ID        uint   `gorm:"primaryKey"`
	Scope     string `gorm:"size:128;not null;uniqueIndex:idx_flag_scope_name"`
	Name      string `gorm:"size:64;not null;uniqueIndex:idx_flag_scope_name"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open picks the driver from the DSN: postgres:// and postgresql:// go to
// Postgres, anything else is a SQLite file path.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store: empty dsn")
	}

	var dialector gorm.Dialector
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
		driver = "postgres"
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&Flag{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	logger.Named("store").Debug("opened", zap.String("driver", driver))
	return &Store{db: db, log: logger.Named("store")}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Set(ctx context.Context, scope, name, value string) error {
	if scope == "" || name == "" {
		return ErrEmptyKey
	}
	f := Flag{Scope: scope, Name: name, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&f).Error
	if err != nil {
		return fmt.Errorf("store: set %s/%s: %w", scope, name, err)
	}
	return nil
}

// Get reports ok=false when the flag was never set.
func (s *Store) Get(ctx context.Context, scope, name string) (string, bool, error) {
	var f Flag
	err := s.db.WithContext(ctx).Where("scope = ? AND name = ?", scope, name).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get %s/%s: %w", scope, name, err)
	}
	return f.Value, true, nil
}

func (s *Store) Delete(ctx context.Context, scope, name string) error {
	err := s.db.WithContext(ctx).Where("scope = ? AND name = ?", scope, name).Delete(&Flag{}).Error
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", scope, name, err)
	}
	return nil
}

// Consume reads a flag and removes it in one transaction.
func (s *Store) Consume(ctx context.Context, scope, name string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f Flag
		err := tx.Where("scope = ? AND name = ?", scope, name).Take(&f).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = f.Value, true
		return tx.Delete(&f).Error
	})
	if err != nil {
		return "", false, fmt.Errorf("store: consume %s/%s: %w", scope, name, err)
	}
	return value, found, nil
}

// Scope lists every flag under scope, ordered by name.
func (s *Store) Scope(ctx context.Context, scope string) ([]Flag, error) {
	var flags []Flag
	err := s.db.WithContext(ctx).Where("scope = ?", scope).Order("name").Find(&flags).Error
	if err != nil {
		return nil, fmt.Errorf("store: scope %s: %w", scope, err)
	}
	return flags, nil
}
