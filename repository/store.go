// Package repository is the gorm-backed persistence layer for forms,
// questions, organizations, responses and export jobs.
package repository

import (
	"context"
	"errors"

	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"gorm.io/gorm"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db     *gorm.DB
	paging paging.Options
}

func New(db *gorm.DB, opts paging.Options) *Store {
	return &Store{db: db, paging: opts}
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Form{},
		&models.Question{},
		&models.Organization{},
		&models.Response{},
		&models.ExportJob{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
