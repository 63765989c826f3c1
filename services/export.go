package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/vnkhanh/erp-questionnaire/storage"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	DefaultExportTimeout = 2 * time.Minute
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type ExportStore interface {
	ListForms(ctx context.Context, offset, limit int) ([]models.Form, error)
	ListQuestions(ctx context.Context, f repository.QuestionFilter, offset, limit int) ([]models.Question, error)
	ListResponseRows(ctx context.Context, formID uint, offset, limit int) ([]repository.ResponseRow, error)
	CreateExportJob(ctx context.Context, job *models.ExportJob) error
	UpdateExportJob(ctx context.Context, jobID string, fields map[string]any) error
	GetExportJob(ctx context.Context, jobID string) (models.ExportJob, error)
}

type ExporterConfig struct {
	Timeout time.Duration
	Paging  paging.Options
	// Dir receives files written by background jobs.
	Dir string
}

// Workbook is a finished export.
type Workbook struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter builds response matrices and writes them as workbooks. Only one
// export per scope runs at a time.
type Exporter struct {
	store ExportStore
	blobs storage.Blobs
	cfg   ExporterConfig
	log   *slog.Logger

	mu      sync.Mutex
	running map[questionnaire.FormID]bool
	jobs    sync.WaitGroup
}

func NewExporter(store ExportStore, blobs storage.Blobs, cfg ExporterConfig, logger *slog.Logger) *Exporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExportTimeout
	}
	if cfg.Dir == "" {
		cfg.Dir = "./exports"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, blobs: blobs, cfg: cfg, log: logger, running: map[questionnaire.FormID]bool{}}
}

func (e *Exporter) acquire(scope questionnaire.FormID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[scope] {
		return false
	}
	e.running[scope] = true
	return true
}

func (e *Exporter) release(scope questionnaire.FormID) {
	e.mu.Lock()
	delete(e.running, scope)
	e.mu.Unlock()
}

// Export builds the workbook for scope. AllForms yields one sheet per form
// that has data.
func (e *Exporter) Export(ctx context.Context, scope questionnaire.FormID, format string) (Workbook, error) {
	if err := checkFormat(scope, format); err != nil {
		return Workbook{}, err
	}
	if !e.acquire(scope) {
		return Workbook{}, ErrExportInProgress
	}
	defer e.release(scope)
	return e.build(ctx, scope, format)
}

func checkFormat(scope questionnaire.FormID, format string) error {
	switch format {
	case "", FormatXLSX:
		return nil
	case FormatCSV:
		if scope == questionnaire.AllForms {
			return fmt.Errorf("%w: csv needs a single form", ErrUnsupportedFormat)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func (e *Exporter) build(ctx context.Context, scope questionnaire.FormID, format string) (Workbook, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	sheets, err := e.Sheets(ctx, scope)
	if err != nil {
		return Workbook{}, err
	}

	var wb Workbook
	if format == FormatCSV {
		data, err := WriteCSV(sheets[0].Rows)
		if err != nil {
			return Workbook{}, err
		}
		wb = Workbook{Filename: exportFilename(scope, FormatCSV), ContentType: "text/csv", Data: data}
	} else {
		data, err := WriteWorkbook(sheets)
		if err != nil {
			return Workbook{}, err
		}
		wb = Workbook{
			Filename:    exportFilename(scope, FormatXLSX),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}
	}
	e.log.Info("export built",
		slog.Uint64("form_id", uint64(scope)),
		slog.Int("sheets", len(sheets)),
		slog.Duration("took", time.Since(start)))
	return wb, nil
}

func exportFilename(scope questionnaire.FormID, ext string) string {
	if scope == questionnaire.AllForms {
		return "All_Forms_Responses." + ext
	}
	return fmt.Sprintf("Form_%d_Responses.%s", scope, ext)
}

// Sheets returns the pivoted matrices for scope without rendering them.
func (e *Exporter) Sheets(ctx context.Context, scope questionnaire.FormID) ([]Sheet, error) {
	if scope != questionnaire.AllForms {
		m, err := e.formMatrix(ctx, uint(scope))
		if err != nil {
			return nil, err
		}
		return []Sheet{{Name: SingleSheet, Rows: m}}, nil
	}

	forms, err := paging.FetchAll(ctx, e.cfg.Paging, e.store.ListForms)
	if err != nil {
		return nil, &LookupError{Op: "forms", Err: err}
	}
	var sheets []Sheet
	for _, f := range forms {
		m, err := e.formMatrix(ctx, f.ID)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, Sheet{Name: SheetName(f.ID, f.Name), Rows: m})
	}
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	return sheets, nil
}

// formMatrix includes inactive questions so retired answers still export.
func (e *Exporter) formMatrix(ctx context.Context, formID uint) (Matrix, error) {
	filter := repository.QuestionFilter{FormID: formID}
	rows, err := paging.FetchAll(ctx, e.cfg.Paging, func(ctx context.Context, offset, limit int) ([]models.Question, error) {
		return e.store.ListQuestions(ctx, filter, offset, limit)
	})
	if err != nil {
		return nil, &LookupError{Op: "questions", Err: err}
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	questions := make([]questionnaire.Question, 0, len(rows))
	for _, r := range rows {
		q, err := r.ToDomain()
		if err != nil {
			return nil, &LookupError{Op: "questions", Err: err}
		}
		questions = append(questions, q)
	}

	responses, err := paging.FetchAll(ctx, e.cfg.Paging, func(ctx context.Context, offset, limit int) ([]repository.ResponseRow, error) {
		return e.store.ListResponseRows(ctx, formID, offset, limit)
	})
	if err != nil {
		return nil, &LookupError{Op: "responses", Err: err}
	}
	if len(responses) == 0 {
		return nil, ErrNoData
	}
	return Pivot(questions, responses, e.blobs.PublicURL), nil
}

// Enqueue records a job and builds the export in the background. The file
// lands in the configured directory.
func (e *Exporter) Enqueue(ctx context.Context, scope questionnaire.FormID, format string) (models.ExportJob, error) {
	if err := checkFormat(scope, format); err != nil {
		return models.ExportJob{}, err
	}
	if !e.acquire(scope) {
		return models.ExportJob{}, ErrExportInProgress
	}
	job := models.ExportJob{JobID: uuid.NewString(), FormID: uint(scope), Status: models.JobQueued}
	if err := e.store.CreateExportJob(ctx, &job); err != nil {
		e.release(scope)
		return models.ExportJob{}, &PersistError{Op: "export job", Err: err}
	}

	e.jobs.Add(1)
	go func() {
		defer e.jobs.Done()
		defer e.release(scope)
		e.process(job.JobID, scope, format)
	}()
	return job, nil
}

func (e *Exporter) process(jobID string, scope questionnaire.FormID, format string) {
	ctx := context.Background()
	log := e.log.With(slog.String("job_id", jobID), slog.Uint64("form_id", uint64(scope)))

	if err := e.store.UpdateExportJob(ctx, jobID, map[string]any{"status": models.JobProcessing}); err != nil {
		log.Error("export job update failed", slog.Any("error", err))
	}

	fail := func(err error) {
		if errors.Is(err, ErrNoData) {
			log.Info("export job has no data")
		} else {
			log.Error("export job failed", slog.Any("error", err))
		}
		if uerr := e.store.UpdateExportJob(ctx, jobID, map[string]any{"status": models.JobFailed, "error_msg": err.Error()}); uerr != nil {
			log.Error("export job update failed", slog.Any("error", uerr))
		}
	}

	wb, err := e.build(ctx, scope, format)
	if err != nil {
		fail(err)
		return
	}
	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		fail(err)
		return
	}
	outPath := filepath.Join(e.cfg.Dir, jobID+"_"+wb.Filename)
	if err := os.WriteFile(outPath, wb.Data, 0o644); err != nil {
		fail(err)
		return
	}
	if err := e.store.UpdateExportJob(ctx, jobID, map[string]any{"status": models.JobDone, "file_path": outPath}); err != nil {
		log.Error("export job update failed", slog.Any("error", err))
		return
	}
	log.Info("export job done", slog.String("file", outPath))
}

// Job returns the state of a background export.
func (e *Exporter) Job(ctx context.Context, jobID string) (models.ExportJob, error) {
	job, err := e.store.GetExportJob(ctx, jobID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return models.ExportJob{}, &LookupError{Op: "export job", Err: err}
	}
	return job, err
}

// Wait blocks until background jobs finish.
func (e *Exporter) Wait() {
	e.jobs.Wait()
}
