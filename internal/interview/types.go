// Package interview owns the per-candidate session lifecycle: the turn-by-turn
// state machine, the escalation policy and the finalization pipeline.
package interview

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hireflow/interviewer/internal/ai"
)

// Job is an immutable-per-version interview template. The question order is
// significant and fixed for a given job.
type Job struct {
	ID        uint
	Title     string
	RoleInfo  string // free-text role metadata consumed only by the scoring pipeline
	Language  string
	Questions []string
}

// AnswerSlot is one entry of the answer ledger. The zero value means the
// question was never validly answered.
type AnswerSlot struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Filled reports whether the slot holds a recorded answer.
func (s AnswerSlot) Filled() bool {
	return s.Answer != ""
}

// Transcript roles.
const (
	RoleCandidate = "candidate"
	RoleAssistant = "assistant"
)

// TranscriptEntry is one appended line of the session conversation log.
type TranscriptEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is one candidate's in-progress or completed interview against one
// job. At most one open session exists per (candidate, job) pair.
type Session struct {
	ID           string
	Candidate    string
	JobID        uint
	Started      bool
	CurrentIndex int
	Ledger       []AnswerSlot
	FollowUps    []int
	NeedsReview  []bool
	Processed    []string
	Transcript   []TranscriptEntry
	Version      uint
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// NewSession creates an open session at question index 0. The per-question
// counter and flag slices are dense and sized to the question count, so no
// code path ever reads an undefined entry.
func NewSession(candidate string, jobID uint, questionCount int) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Candidate:   candidate,
		JobID:       jobID,
		Started:     true,
		FollowUps:   make([]int, questionCount),
		NeedsReview: make([]bool, questionCount),
		CreatedAt:   time.Now().UTC(),
	}
}

// Completed reports whether the session has been closed.
func (s *Session) Completed() bool {
	return s.CompletedAt != nil
}

// HasProcessed reports whether a delivery identifier was already handled.
func (s *Session) HasProcessed(deliveryID string) bool {
	for _, id := range s.Processed {
		if id == deliveryID {
			return true
		}
	}
	return false
}

// MarkProcessed records a delivery identifier in the processed set.
func (s *Session) MarkProcessed(deliveryID string) {
	if deliveryID == "" || s.HasProcessed(deliveryID) {
		return
	}
	s.Processed = append(s.Processed, deliveryID)
}

// RecordAnswer writes the ledger slot for the given index if it is still
// empty. The first valid answer wins; later writes are ignored.
func (s *Session) RecordAnswer(index int, question, answer string) bool {
	if index < 0 {
		return false
	}
	for len(s.Ledger) <= index {
		s.Ledger = append(s.Ledger, AnswerSlot{})
	}
	if s.Ledger[index].Filled() {
		return false
	}
	s.Ledger[index] = AnswerSlot{Question: question, Answer: answer}
	return true
}

// AnsweredSlots returns the filled ledger entries in question order, in the
// shape the responder service expects as prior context.
func (s *Session) AnsweredSlots() []ai.LedgerEntry {
	entries := make([]ai.LedgerEntry, 0, len(s.Ledger))
	for _, slot := range s.Ledger {
		if slot.Filled() {
			entries = append(entries, ai.LedgerEntry{Question: slot.Question, Answer: slot.Answer})
		}
	}
	return entries
}

// Transcribe appends one line to the conversation transcript.
func (s *Session) Transcribe(role, text string) {
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Role: role,
		Text: text,
		At:   time.Now().UTC(),
	})
}

// ReviewIndexes returns the question indexes flagged for manual review.
func (s *Session) ReviewIndexes() []int {
	var indexes []int
	for i, flagged := range s.NeedsReview {
		if flagged {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// Decision is the server-derived tier of a submission. It is computed from
// the clamped score alone; the upstream-provided label is never trusted.
type Decision string

const (
	DecisionStrong      Decision = "strong_fit"
	DecisionRecommended Decision = "recommended"
	DecisionReview      Decision = "needs_review"
	DecisionWeak        Decision = "weak_fit"
)

// Submission is the immutable scored record created exactly once per
// completed session.
type Submission struct {
	ID          string
	SessionID   string
	Candidate   string
	JobID       uint
	Ledger      []AnswerSlot
	Score       int
	Strengths   []string
	Weaknesses  []string
	Decision    Decision
	Summary     string
	NeedsReview []int
	CreatedAt   time.Time
}

// JobStore reads interview templates.
type JobStore interface {
	Get(ctx context.Context, id uint) (*Job, error)
}

// SessionStore persists sessions. GetOpen returns (nil, nil) when the
// candidate has no open session for the job. Save must fail when the stored
// session version no longer matches the loaded one.
type SessionStore interface {
	GetOpen(ctx context.Context, candidate string, jobID uint) (*Session, error)
	Create(ctx context.Context, session *Session) error
	Save(ctx context.Context, session *Session) error
}

// SubmissionStore persists scored submissions; append-only.
type SubmissionStore interface {
	Create(ctx context.Context, submission *Submission) error
	GetByCandidate(ctx context.Context, candidate string, jobID uint) (*Submission, error)
}

// EventSink receives fire-and-forget telemetry events. Implementations must
// never block the turn on broker availability.
type EventSink interface {
	Emit(ctx context.Context, kind string, payload any)
}
