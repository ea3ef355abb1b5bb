package repository

import (
	"context"

	"github.com/hamdam-bot/hamdam/internal/db"
	"gorm.io/gorm"
)

// ReportRepository provides data access for report rows in the audit DB.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

// Create inserts a report row.
//
// Example:
//
//	repo.Create(ctx, 1, 2, "User reported during chat")
func (r *ReportRepository) Create(ctx context.Context, reporterID, reportedID int64, reason string) error {
	report := db.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     reason,
	}
	return r.db.WithContext(ctx).Create(&report).Error
}

// CountAgainstUser returns how many reports have ever been filed against the
// given user. Surfaced in the admin notice so repeat offenders stand out.
func (r *ReportRepository) CountAgainstUser(ctx context.Context, reportedID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("reported_id = ?", reportedID).
		Count(&count).Error
	return count, err
}
