package service

import (
	"errors"
	"math"

	"dropoutpredictor/internal/apperr"
	"dropoutpredictor/internal/model"

	"gorm.io/gorm"
)

// RunService keeps completed runs for the lifetime of the process.
type RunService struct {
	db *gorm.DB
}

func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

// Save records a finished result.
func (s *RunService) Save(result *model.Result) error {
	run := model.Run{
		ID:        result.RunID,
		FileName:  result.FileName,
		Total:     result.Summary.Total,
		Studying:  result.Summary.Studying,
		Dropped:   result.Summary.Dropped,
		ResultCSV: result.ExportCSV,
		CreatedAt: result.CreatedAt,
	}
	return s.db.Create(&run).Error
}

// GetRun returns the run with id, including its exported CSV.
func (s *RunService) GetRun(id string) (*model.Run, error) {
	var run model.Run
	err := s.db.Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("run " + id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns pages through runs, newest first. Exported files are not loaded.
func (s *RunService) ListRuns(page, limit int) ([]model.Run, int64, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var totalCount int64
	if err := s.db.Model(&model.Run{}).Count(&totalCount).Error; err != nil {
		return nil, 0, 0, err
	}

	runs := []model.Run{}
	err := s.db.Model(&model.Run{}).
		Select("id", "file_name", "total", "studying", "dropped", "created_at").
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, 0, err
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(limit)))
	return runs, totalCount, totalPages, nil
}
