package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/vnkhanh/erp-questionnaire/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const erpCSV = `section,type,label,options,parent_question_id,condition_value,subsection,status,form_id,form_name
General,radio,Uses ERP?,"Yes,No",,,,,1,ERP Discovery
General,text,Which one?,,1,Yes,,,1,
Finance,checkbox,Modules in use,"GL, AP, AR",,,Ledgers,,1,
Finance,file,Chart of accounts,,,,Ledgers,,1,
HR,textarea,Payroll notes,,,,,,2,HR Review
`

type fixture struct {
	store    *repository.Store
	catalog  *cache.MemoryCatalog
	blobs    *storage.Memory
	importer *Importer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := repository.New(db, paging.Options{PageSize: 2})
	catalog := cache.NewMemoryCatalog(store, time.Minute)
	f := &fixture{
		store:    store,
		catalog:  catalog,
		blobs:    storage.NewMemory("https://blobs.test"),
		importer: NewImporter(store, catalog, nil),
	}
	if _, err := f.importer.Import(context.Background(), strings.NewReader(erpCSV)); err != nil {
		t.Fatalf("import fixture: %v", err)
	}
	return f
}

func (f *fixture) submitter() *Submitter {
	return NewSubmitter(f.store, f.catalog, f.blobs, nil)
}

func (f *fixture) exporter(t *testing.T) *Exporter {
	return NewExporter(f.store, f.blobs, ExporterConfig{Paging: paging.Options{PageSize: 2}, Dir: t.TempDir()}, nil)
}

type failingBlobs struct{}

func (failingBlobs) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingBlobs) PublicURL(path string) string { return path }

func fileOf(content string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}
}
