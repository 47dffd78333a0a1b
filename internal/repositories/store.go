package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store is the database client: one repository per model plus transactions
// and raw SQL passthroughs.
type Store struct {
	db *gorm.DB

	Users      UserRepository
	Regions    RegionRepository
	Categories CategoryRepository
	Companies  CompanyRepository
	Products   ProductRepository
	Requests   RequestRepository
	Offers     OfferRepository
}

// NewStore creates a Store whose repositories all share db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewGORMUserRepository(db),
		Regions:    NewGORMRegionRepository(db),
		Categories: NewGORMCategoryRepository(db),
		Companies:  NewGORMCompanyRepository(db),
		Products:   NewGORMProductRepository(db),
		Requests:   NewGORMRequestRepository(db),
		Offers:     NewGORMOfferRepository(db),
	}
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise; a panic
// in fn rolls back and is returned as a *PanicError.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// ExecuteRaw runs a parameterised statement and returns the rows affected.
func (s *Store) ExecuteRaw(ctx context.Context, sql string, args ...any) (int64, error) {
	res := s.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return 0, translateError("raw", "", res.Error)
	}
	return res.RowsAffected, nil
}

// QueryRaw runs a parameterised query and scans the rows into dest.
func (s *Store) QueryRaw(ctx context.Context, dest any, sql string, args ...any) error {
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(dest).Error; err != nil {
		return translateError("raw", "", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translateError("raw", "", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return translateError("raw", "", err)
	}
	return nil
}
