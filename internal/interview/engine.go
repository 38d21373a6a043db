package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/ai"
	"github.com/hireflow/interviewer/internal/classify"
	"github.com/hireflow/interviewer/internal/messages"
)

// DefaultMaxFollowUps is the escalation ceiling applied when the config does
// not set one: the number of ambiguous turns tolerated per question before
// the session is force-advanced.
const DefaultMaxFollowUps = 2

// ErrMissingSender is returned for deliveries without a sender identity. The
// turn is rejected outright; no session is touched.
var ErrMissingSender = errors.New("sender identity is required")

// Inbound is the core's only entry point per message.
type Inbound struct {
	Candidate  string
	DeliveryID string
	Text       string
}

// Deps aggregates the collaborators of the engine.
type Deps struct {
	Jobs     JobStore
	Sessions SessionStore
	Delegate ai.Delegate
	Scoring  *Pipeline
	Events   EventSink
	Logger   *zap.Logger
}

// Engine drives the per-session state machine. Turns for the same candidate
// are serialized through a keyed mutex; turns for different candidates run
// concurrently.
type Engine struct {
	jobID        uint
	maxFollowUps int
	deps         Deps
	logger       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(jobID uint, maxFollowUps int, deps Deps) *Engine {
	if maxFollowUps <= 0 {
		maxFollowUps = DefaultMaxFollowUps
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		jobID:        jobID,
		maxFollowUps: maxFollowUps,
		deps:         deps,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}
}

// HandleTurn processes one inbound message and returns the ordered replies to
// send back to the candidate. Session mutations are durably saved before the
// replies are returned. A duplicate delivery returns no replies and mutates
// nothing.
func (e *Engine) HandleTurn(ctx context.Context, in Inbound) ([]string, error) {
	candidate := strings.TrimSpace(in.Candidate)
	if candidate == "" {
		return nil, ErrMissingSender
	}

	lock := e.sessionLock(candidate)
	lock.Lock()
	defer lock.Unlock()

	job, err := e.deps.Jobs.Get(ctx, e.jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", e.jobID, err)
	}
	texts := messages.For(job.Language)

	sess, err := e.deps.Sessions.GetOpen(ctx, candidate, job.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if sess == nil {
		return e.handleNotStarted(ctx, job, candidate, in, texts)
	}

	if in.DeliveryID != "" && sess.HasProcessed(in.DeliveryID) {
		e.logger.Debug("duplicate delivery, skipping turn",
			zap.String("candidate", candidate),
			zap.String("delivery_id", in.DeliveryID),
		)
		return nil, nil
	}

	sess.MarkProcessed(in.DeliveryID)
	sess.Transcribe(RoleCandidate, in.Text)

	replies := e.resolveTurn(ctx, job, sess, texts, in.Text)
	for _, reply := range replies {
		sess.Transcribe(RoleAssistant, reply)
	}

	if err := e.deps.Sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	e.emit(ctx, "turn_processed", map[string]any{
		"session_id": sess.ID,
		"candidate":  candidate,
		"index":      sess.CurrentIndex,
		"completed":  sess.Completed(),
	})

	return replies, nil
}

// handleNotStarted covers candidates with no open session: a readiness signal
// creates one, anything else re-emits the welcome message so classifier noise
// never creates sessions.
func (e *Engine) handleNotStarted(ctx context.Context, job *Job, candidate string, in Inbound, texts messages.Texts) ([]string, error) {
	if !classify.IsReadinessSignal(in.Text) {
		return []string{texts.Welcome}, nil
	}

	sess := NewSession(candidate, job.ID, len(job.Questions))
	sess.MarkProcessed(in.DeliveryID)
	sess.Transcribe(RoleCandidate, in.Text)

	var replies []string
	if len(job.Questions) == 0 {
		e.complete(ctx, job, sess)
		replies = []string{texts.NoQuestions}
	} else {
		replies = []string{job.Questions[0]}
	}
	for _, reply := range replies {
		sess.Transcribe(RoleAssistant, reply)
	}

	if err := e.deps.Sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	e.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("candidate", candidate),
		zap.Uint("job_id", job.ID),
		zap.Int("questions", len(job.Questions)),
	)

	return replies, nil
}

// resolveTurn applies the state machine to one message for an open session.
func (e *Engine) resolveTurn(ctx context.Context, job *Job, sess *Session, texts messages.Texts, text string) []string {
	index := sess.CurrentIndex
	if index >= len(job.Questions) {
		// A previous forced advance landed past the last index.
		e.complete(ctx, job, sess)
		return []string{texts.Closing}
	}
	question := job.Questions[index]

	switch category := classify.Classify(text); category {
	case classify.CategoryConfirmation:
		// Filler acknowledgement: no advance, no re-prompt, no echo loop.
		return nil

	case classify.CategoryClarification:
		// Re-ask the full question exactly once; exempt from the ceiling.
		reply := e.consult(ctx, job, sess, question, text)
		return nonEmpty(reply.Reply, question)

	case classify.CategoryQuestion:
		if !classify.IsSubstantive(text) {
			reply := e.consult(ctx, job, sess, question, text)
			if e.escalate(sess, index) {
				return e.forceAdvance(ctx, job, sess, texts)
			}
			return nonEmpty(reply.Reply, reply.FollowUp)
		}
		fallthrough

	default:
		return e.resolveAmbiguous(ctx, job, sess, texts, question, text)
	}
}

// resolveAmbiguous is the default path: consult the responder service and
// dispatch on its canonical action.
func (e *Engine) resolveAmbiguous(ctx context.Context, job *Job, sess *Session, texts messages.Texts, question, text string) []string {
	index := sess.CurrentIndex
	reply := e.consult(ctx, job, sess, question, text)

	switch reply.Action {
	case ai.ActionAnswer:
		answer := reply.Answer
		if answer == "" {
			answer = strings.TrimSpace(text)
		}
		// Defense in depth: an upstream model mis-tagging a non-answer as an
		// answer must not author a ledger slot.
		if !classify.IsViableAnswer(answer) {
			return []string{question}
		}
		return e.acceptAnswer(ctx, job, sess, texts, question, answer)

	case ai.ActionClarify:
		return nonEmpty(reply.Reply, question)

	default: // ask_again, guide
		// A strict model classification cannot block real progress: a message
		// that independently passes the substantive answer check is accepted.
		if classify.IsSubstantive(text) && classify.IsViableAnswer(text) {
			return e.acceptAnswer(ctx, job, sess, texts, question, strings.TrimSpace(text))
		}
		if e.escalate(sess, index) {
			return e.forceAdvance(ctx, job, sess, texts)
		}
		return nonEmpty(reply.Reply, reply.FollowUp)
	}
}

// acceptAnswer records the answer for the current question and advances. The
// acknowledgement and the next prompt (or the closing) go out in one reply.
func (e *Engine) acceptAnswer(ctx context.Context, job *Job, sess *Session, texts messages.Texts, question, answer string) []string {
	index := sess.CurrentIndex
	sess.RecordAnswer(index, question, answer)
	sess.CurrentIndex = index + 1

	if sess.CurrentIndex >= len(job.Questions) {
		e.complete(ctx, job, sess)
		return []string{texts.Acknowledgement + "\n\n" + texts.Closing}
	}

	return []string{texts.Acknowledgement + "\n\n" + job.Questions[sess.CurrentIndex]}
}

// escalate increments the follow-up counter for the index and reports whether
// the ceiling was crossed. Crossing it flags the index for manual review.
func (e *Engine) escalate(sess *Session, index int) bool {
	sess.FollowUps[index]++
	if sess.FollowUps[index] <= e.maxFollowUps {
		return false
	}
	sess.NeedsReview[index] = true
	e.logger.Info("follow-up ceiling reached, forcing advance",
		zap.String("session_id", sess.ID),
		zap.Int("index", index),
		zap.Int("follow_ups", sess.FollowUps[index]),
	)
	return true
}

// forceAdvance moves past the current question without a recorded answer. No
// follow-up prompt is sent for the abandoned index.
func (e *Engine) forceAdvance(ctx context.Context, job *Job, sess *Session, texts messages.Texts) []string {
	sess.CurrentIndex++
	if sess.CurrentIndex >= len(job.Questions) {
		e.complete(ctx, job, sess)
		return []string{texts.Closing}
	}
	return []string{job.Questions[sess.CurrentIndex]}
}

// complete closes the session exactly once and runs the scoring pipeline.
// Finalization never fails the turn that triggered it.
func (e *Engine) complete(ctx context.Context, job *Job, sess *Session) {
	if sess.Completed() {
		return
	}
	now := time.Now().UTC()
	sess.CompletedAt = &now

	submission, err := e.deps.Scoring.Finalize(ctx, job, sess)
	if err != nil {
		e.logger.Error("finalization error", zap.String("session_id", sess.ID), zap.Error(err))
	}

	payload := map[string]any{
		"session_id": sess.ID,
		"candidate":  sess.Candidate,
		"job_id":     job.ID,
	}
	e.emit(ctx, "session_completed", payload)
	if submission != nil {
		e.emit(ctx, "submission_created", map[string]any{
			"submission_id": submission.ID,
			"session_id":    sess.ID,
			"score":         submission.Score,
			"decision":      submission.Decision,
		})
	}
}

// consult wraps the responder call; any failure degrades to the ask-again
// default so the turn always resolves.
func (e *Engine) consult(ctx context.Context, job *Job, sess *Session, question, text string) *ai.TurnReply {
	req := &ai.TurnRequest{
		JobTitle: job.Title,
		Question: question,
		Ledger:   sess.AnsweredSlots(),
		Message:  text,
	}

	reply, err := e.deps.Delegate.Respond(ctx, req)
	if err != nil || reply == nil {
		e.logger.Warn("responder failed, using ask_again default",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return ai.AskAgainDefault()
	}
	return reply
}

func (e *Engine) emit(ctx context.Context, kind string, payload any) {
	if e.deps.Events == nil {
		return
	}
	e.deps.Events.Emit(ctx, kind, payload)
}

func (e *Engine) sessionLock(candidate string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[candidate]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[candidate] = lock
	}
	return lock
}

func nonEmpty(parts ...string) []string {
	replies := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			replies = append(replies, trimmed)
		}
	}
	return replies
}
