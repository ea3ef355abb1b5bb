package db

import (
	"time"
)

// Report is one user reporting their current chat partner. Reporting always
// ends the session; the row stays for moderation.
//
// Indexes:
//   - idx_reported_created(reported_id, created_at DESC)
//     Optimizes "recent reports against this user" for the admin notice.
type Report struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	ReporterID int64  `gorm:"not null;index"`
	ReportedID int64  `gorm:"not null;index:idx_reported_created,priority:1"`
	Reason     string `gorm:"size:255;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_reported_created,priority:2,sort:desc"`
}

// ChatArchive is one row per ended session: who talked, when it ran, who
// ended it and whether it ended in a report. The live pair pointers stay in
// Redis; this table is the durable trail.
type ChatArchive struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserAID   int64     `gorm:"not null;index"`
	UserBID   int64     `gorm:"not null;index"`
	StartedAt time.Time `gorm:"not null"`
	EndedAt   time.Time `gorm:"not null"`
	EndedBy   int64     `gorm:"not null"`
	Reported  bool      `gorm:"not null;default:false"`
}
