package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quest-entry-service/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore keeps entries in a SQL table (Postgres in production, SQLite
// for local runs and tests).
type GormStore struct {
	DB    *gorm.DB
	table string
	now   func() time.Time
}

// OpenPostgres connects and migrates the entries table.
func OpenPostgres(ctx context.Context, dsn, table string) (*GormStore, error) {
	return open(ctx, postgres.Open(dsn), table)
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(ctx context.Context, path, table string) (*GormStore, error) {
	return open(ctx, sqlite.Open(path), table)
}

func open(ctx context.Context, dialector gorm.Dialector, table string) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewGormStore(db, table)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewGormStore wraps an existing connection. Call Migrate before use on a
// fresh database.
func NewGormStore(db *gorm.DB, table string) *GormStore {
	if table == "" {
		table = "entries"
	}
	return &GormStore{DB: db, table: table, now: time.Now}
}

// Migrate creates the table and its unique indexes.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).Table(s.table).AutoMigrate(&models.Entry{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *GormStore) entries(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Table(s.table)
}

// CreateEntry inserts with ON CONFLICT DO NOTHING; zero affected rows means
// one of the unique indexes already holds the wallet or the email.
func (s *GormStore) CreateEntry(ctx context.Context, in NewEntry) (*models.Entry, error) {
	in = in.Normalize()
	entry := models.Entry{
		ID:                uuid.NewString(),
		Email:             in.Email,
		WalletAddress:     in.WalletAddress,
		EasterEggUnlocked: in.EasterEggUnlocked,
		EasterEggSolved:   in.EasterEggSolved,
		CreatedAt:         s.now().UTC(),
	}

	res := s.entries(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.conflictFor(ctx, in)
	}
	return &entry, nil
}

func (s *GormStore) conflictFor(ctx context.Context, in NewEntry) error {
	for _, probe := range []struct {
		field Field
		cond  string
		value string
	}{
		{FieldWallet, "wallet_address = ?", in.WalletAddress},
		{FieldEmail, "email = ?", in.Email},
	} {
		var n int64
		if err := s.entries(ctx).Where(probe.cond, probe.value).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to resolve insert conflict: %w", err)
		}
		if n > 0 {
			return &ConflictError{Field: probe.field}
		}
	}
	return fmt.Errorf("insert for wallet %s was ignored but no conflicting entry exists", in.WalletAddress)
}

func (s *GormStore) GetEntryByWallet(ctx context.Context, walletAddress string) (*models.Entry, error) {
	var entry models.Entry
	err := s.entries(ctx).Where("wallet_address = ?", walletAddress).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entry: %w", err)
	}
	return &entry, nil
}

// MarkSolved only touches rows still unsolved, so a second call affects
// nothing and is reported as SolveNoChange.
func (s *GormStore) MarkSolved(ctx context.Context, walletAddress string) (SolveResult, error) {
	res := s.entries(ctx).
		Where("wallet_address = ? AND easter_egg_solved = ?", walletAddress, false).
		Update("easter_egg_solved", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update entry: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return SolveUpdated, nil
	}

	var n int64
	if err := s.entries(ctx).Where("wallet_address = ?", walletAddress).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to check entry: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return SolveNoChange, nil
}

func (s *GormStore) SolvedRank(ctx context.Context, _ string) (Rank, error) {
	var solved int64
	if err := s.entries(ctx).Where("easter_egg_solved = ?", true).Count(&solved).Error; err != nil {
		return Rank{}, fmt.Errorf("failed to count solved entries: %w", err)
	}
	return RankFor(solved), nil
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.entries(ctx).
		Select("COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN easter_egg_solved THEN 1 ELSE 0 END), 0) AS solved, " +
			"COALESCE(SUM(CASE WHEN easter_egg_unlocked THEN 1 ELSE 0 END), 0) AS unlocked").
		Scan(&st).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return st, nil
}

func (s *GormStore) EachEntry(ctx context.Context, fn func(models.Entry) error) error {
	rows, err := s.entries(ctx).Order("created_at ASC").Order("id ASC").Rows()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.Entry
		if err := s.DB.ScanRows(rows, &entry); err != nil {
			return fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
