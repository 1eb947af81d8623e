package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fooddelivery/pkg/guard"
	"fooddelivery/pkg/models"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// GormStore is the guard's view of the database.
type GormStore struct {
	db *gorm.DB
}

var _ guard.Store = (*GormStore)(nil)

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func eq(column string, value uint) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: column}, Value: value}
}

func (s *GormStore) Count(ctx context.Context, kind models.Kind, column string, value uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(kind.New()).Where(eq(column, value)).Count(&n).Error
	return n, translateError(err)
}

func (s *GormStore) DeleteWhere(ctx context.Context, kind models.Kind, column string, value uint) (int64, error) {
	res := s.db.WithContext(ctx).Where(eq(column, value)).Delete(kind.New())
	return res.RowsAffected, translateError(res.Error)
}

func (s *GormStore) DeleteByID(ctx context.Context, kind models.Kind, id uint) (int64, error) {
	res := s.db.WithContext(ctx).Delete(kind.New(), id)
	return res.RowsAffected, translateError(res.Error)
}

func (s *GormStore) Exists(ctx context.Context, kind models.Kind, id uint) (bool, error) {
	n, err := s.Count(ctx, kind, "id", id)
	return n > 0, err
}

func (s *GormStore) Children(ctx context.Context, kind models.Kind, column string, value uint) ([]guard.Child, error) {
	columns := []string{"id"}
	if name := kind.NameColumn(); name != "" {
		columns = append(columns, name+" AS name")
	}

	var children []guard.Child
	err := s.db.WithContext(ctx).Model(kind.New()).
		Select(columns).
		Where(eq(column, value)).
		Order("id").
		Scan(&children).Error
	return children, translateError(err)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx guard.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translateError maps foreign-key violations from any supported driver to
// guard.ErrReferenced and leaves everything else alone.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", guard.ErrReferenced, err)
	}
	return err
}

// IsForeignKeyViolation recognises foreign-key errors from gorm, sqlite
// and postgres. Sqlite enforces ON DELETE RESTRICT through a trigger, so
// those violations arrive as trigger constraint errors.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return true
		case sqlite3.ErrConstraintTrigger:
			return strings.Contains(sqliteErr.Error(), "FOREIGN KEY")
		}
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// IsDuplicateKey recognises unique-constraint errors from gorm, sqlite and
// postgres.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
