package repository

import (
	"context"

	"github.com/vnkhanh/erp-questionnaire/models"
)

func (s *Store) CreateExportJob(ctx context.Context, job *models.ExportJob) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *Store) UpdateExportJob(ctx context.Context, jobID string, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&models.ExportJob{}).Where("job_id = ?", jobID).Updates(fields).Error
}

func (s *Store) GetExportJob(ctx context.Context, jobID string) (models.ExportJob, error) {
	var job models.ExportJob
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return models.ExportJob{}, notFound(err)
	}
	return job, nil
}
