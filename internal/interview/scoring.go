package interview

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/ai"
)

// Decision thresholds are a policy constant, never model output.
const (
	strongThreshold      = 85
	recommendedThreshold = 75
	reviewThreshold      = 60
)

const unavailableSummary = "Automatic evaluation was unavailable; manual review required."

// ClampScore rounds the upstream score to an integer and clamps it to
// [0, 100]. Non-numeric scores clamp to 0.
func ClampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// DecisionForScore derives the decision tier purely from the clamped score.
func DecisionForScore(score int) Decision {
	switch {
	case score >= strongThreshold:
		return DecisionStrong
	case score >= recommendedThreshold:
		return DecisionRecommended
	case score >= reviewThreshold:
		return DecisionReview
	default:
		return DecisionWeak
	}
}

// Pipeline aggregates a completed session's ledger into a scored, persisted
// submission. It must never fail the turn that triggered it: an unreachable
// evaluation service degrades to a zero-score manual-review submission.
type Pipeline struct {
	scorer      ai.Scorer
	submissions SubmissionStore
	logger      *zap.Logger
}

func NewPipeline(scorer ai.Scorer, submissions SubmissionStore, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{scorer: scorer, submissions: submissions, logger: logger}
}

// Finalize reads a snapshot of the finished ledger, requests one evaluation
// and persists exactly one submission. Empty slots stay empty: an unanswered
// question is reported as unanswered, never padded with placeholder text.
func (p *Pipeline) Finalize(ctx context.Context, job *Job, sess *Session) (*Submission, error) {
	answers := make([]string, len(job.Questions))
	ledger := make([]AnswerSlot, len(job.Questions))
	missing := false
	for i, question := range job.Questions {
		ledger[i] = AnswerSlot{Question: question}
		if i < len(sess.Ledger) && sess.Ledger[i].Filled() {
			ledger[i].Answer = sess.Ledger[i].Answer
			answers[i] = sess.Ledger[i].Answer
			continue
		}
		missing = true
	}

	submission := &Submission{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		Candidate:   sess.Candidate,
		JobID:       job.ID,
		Ledger:      ledger,
		NeedsReview: sess.ReviewIndexes(),
		CreatedAt:   time.Now().UTC(),
	}

	evaluation, err := p.scorer.Evaluate(ctx, &ai.EvaluationRequest{
		JobTitle:  job.Title,
		RoleInfo:  job.RoleInfo,
		Questions: job.Questions,
		Answers:   answers,
	})

	if err != nil {
		p.logger.Warn("evaluation service unavailable, recording manual-review submission",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		submission.Score = 0
		submission.Strengths = []string{}
		submission.Weaknesses = []string{}
		submission.Decision = DecisionReview
		submission.Summary = unavailableSummary
	} else {
		score := ClampScore(evaluation.Score)
		decision := DecisionForScore(score)
		// Missing answers can never yield a top-tier decision, whatever the
		// score on the answered questions was.
		if missing && (decision == DecisionStrong || decision == DecisionRecommended) {
			decision = DecisionReview
		}
		submission.Score = score
		submission.Strengths = evaluation.Strengths
		submission.Weaknesses = evaluation.Weaknesses
		submission.Decision = decision
		submission.Summary = evaluation.Summary

		if evaluation.Decision != "" && Decision(evaluation.Decision) != decision {
			p.logger.Debug("upstream decision label ignored",
				zap.String("session_id", sess.ID),
				zap.String("upstream", evaluation.Decision),
				zap.String("derived", string(decision)),
			)
		}
	}

	p.logger.Info("submission recorded",
		zap.String("session_id", sess.ID),
		zap.String("submission_id", submission.ID),
		zap.Int("score", submission.Score),
		zap.String("decision", string(submission.Decision)),
		zap.Ints("needs_review", submission.NeedsReview),
	)

	if err := p.submissions.Create(ctx, submission); err != nil {
		return submission, fmt.Errorf("persist submission: %w", err)
	}

	return submission, nil
}
