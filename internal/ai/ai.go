// Package ai defines the contracts between the interview engine and the
// external classifier/responder and evaluation services.
package ai

import (
	"context"
	"strings"
)

// Action is the closed set of outcomes the responder service may choose for
// an ambiguous turn. Any unrecognized tag from the upstream service
// normalizes to ActionAskAgain.
type Action string

const (
	ActionAnswer   Action = "answer"
	ActionClarify  Action = "clarify"
	ActionAskAgain Action = "ask_again"
	ActionGuide    Action = "guide"
)

// ParseAction normalizes an upstream action tag into the closed variant.
func ParseAction(raw string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionAnswer:
		return ActionAnswer
	case ActionClarify:
		return ActionClarify
	case ActionGuide:
		return ActionGuide
	default:
		return ActionAskAgain
	}
}

// LedgerEntry is one answered question passed as prior context to the
// responder service.
type LedgerEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TurnRequest carries everything the responder service needs to resolve one
// ambiguous candidate turn.
type TurnRequest struct {
	JobTitle string
	Question string
	Ledger   []LedgerEntry
	Message  string
}

// TurnReply is the canonical, normalized responder output regardless of the
// upstream wire format.
type TurnReply struct {
	Reply    string
	Answer   string // normalized answer; empty means null
	Action   Action
	FollowUp string
}

// AskAgainDefault is the safe degraded reply used whenever the responder
// service fails or returns garbage.
func AskAgainDefault() *TurnReply {
	return &TurnReply{Action: ActionAskAgain}
}

// Delegate resolves one ambiguous candidate turn. Implementations must not
// propagate upstream failures: any failure mode degrades to AskAgainDefault.
type Delegate interface {
	Respond(ctx context.Context, req *TurnRequest) (*TurnReply, error)
}

// EvaluationRequest is the once-per-session scoring request. Answers are
// aligned by index with Questions; an empty answer means the question was
// never answered.
type EvaluationRequest struct {
	JobTitle  string
	RoleInfo  string
	Questions []string
	Answers   []string
}

// Evaluation is the parsed upstream evaluation. The Decision label is parsed
// for logging only: the persisted decision is always derived from the score
// by the scoring pipeline.
type Evaluation struct {
	Score      float64
	Strengths  []string
	Weaknesses []string
	Decision   string
	Summary    string
}

// Scorer produces an evaluation for a finished answer ledger.
type Scorer interface {
	Evaluate(ctx context.Context, req *EvaluationRequest) (*Evaluation, error)
}
