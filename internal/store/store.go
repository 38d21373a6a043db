// Package store provides MySQL persistence for jobs, sessions and
// submissions. Structured session state (ledger, counters, flags, processed
// ids, transcript) is kept in JSON columns; session writes are guarded by an
// optimistic version check so concurrent deliveries for the same session can
// never both commit.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hireflow/interviewer/internal/interview"
)

// ErrVersionConflict is returned when a session save lost a concurrent race.
var ErrVersionConflict = errors.New("session was modified concurrently")

// JobRecord is the persisted interview template.
type JobRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:255;not null"`
	RoleInfo  string `gorm:"type:text"`
	Language  string `gorm:"size:16"`
	Questions string `gorm:"type:json;not null"`
	CreatedAt time.Time
}

// SessionRecord is the persisted session document.
type SessionRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Candidate    string `gorm:"size:255;index:idx_candidate_job"`
	JobID        uint   `gorm:"index:idx_candidate_job"`
	Started      bool
	CurrentIndex int
	Ledger       string `gorm:"type:json"`
	FollowUps    string `gorm:"type:json"`
	NeedsReview  string `gorm:"type:json"`
	Processed    string `gorm:"type:json"`
	Transcript   string `gorm:"type:json"`
	Version      uint
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubmissionRecord is the persisted scored submission; append-only.
type SubmissionRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	SessionID   string `gorm:"size:36;uniqueIndex"`
	Candidate   string `gorm:"size:255;index"`
	JobID       uint
	Ledger      string `gorm:"type:json"`
	Score       int
	Strengths   string `gorm:"type:json"`
	Weaknesses  string `gorm:"type:json"`
	Decision    string `gorm:"size:32"`
	Summary     string `gorm:"type:text"`
	NeedsReview string `gorm:"type:json"`
	CreatedAt   time.Time
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&JobRecord{}, &SessionRecord{}, &SubmissionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// Jobs implements interview.JobStore.
type Jobs struct {
	db *gorm.DB
}

func NewJobs(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

func (j *Jobs) Get(ctx context.Context, id uint) (*interview.Job, error) {
	var record JobRecord
	if err := j.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, fmt.Errorf("load job %d: %w", id, err)
	}
	return jobFromRecord(&record)
}

// Create persists a new job template and returns its assigned identifier.
func (j *Jobs) Create(ctx context.Context, job *interview.Job) (uint, error) {
	questions, err := encodeJSON(job.Questions)
	if err != nil {
		return 0, err
	}

	record := JobRecord{
		Title:     job.Title,
		RoleInfo:  job.RoleInfo,
		Language:  job.Language,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}
	if err := j.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	return record.ID, nil
}

// Sessions implements interview.SessionStore.
type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) GetOpen(ctx context.Context, candidate string, jobID uint) (*interview.Session, error) {
	var record SessionRecord
	err := s.db.WithContext(ctx).
		Where("candidate = ? AND job_id = ? AND completed_at IS NULL", candidate, jobID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open session: %w", err)
	}
	return sessionFromRecord(&record)
}

func (s *Sessions) Create(ctx context.Context, session *interview.Session) error {
	record, err := sessionToRecord(session)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Save commits the session with a compare-and-swap on the version column. A
// save that matched zero rows lost a race and must not be retried blindly:
// the caller's view of the session is stale.
func (s *Sessions) Save(ctx context.Context, session *interview.Session) error {
	record, err := sessionToRecord(session)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Model(&SessionRecord{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(map[string]any{
			"started":       record.Started,
			"current_index": record.CurrentIndex,
			"ledger":        record.Ledger,
			"follow_ups":    record.FollowUps,
			"needs_review":  record.NeedsReview,
			"processed":     record.Processed,
			"transcript":    record.Transcript,
			"completed_at":  record.CompletedAt,
			"version":       session.Version + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("save session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	session.Version++
	return nil
}

// Submissions implements interview.SubmissionStore.
type Submissions struct {
	db *gorm.DB
}

func NewSubmissions(db *gorm.DB) *Submissions {
	return &Submissions{db: db}
}

func (s *Submissions) Create(ctx context.Context, submission *interview.Submission) error {
	record, err := submissionToRecord(submission)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *Submissions) GetByCandidate(ctx context.Context, candidate string, jobID uint) (*interview.Submission, error) {
	var record SubmissionRecord
	err := s.db.WithContext(ctx).
		Where("candidate = ? AND job_id = ?", candidate, jobID).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return submissionFromRecord(&record)
}
