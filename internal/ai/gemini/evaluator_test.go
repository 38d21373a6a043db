package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hireflow/interviewer/internal/ai"
)

func evaluationRequest() *ai.EvaluationRequest {
	return &ai.EvaluationRequest{
		JobTitle:  "Backend Engineer",
		RoleInfo:  "Payments platform team.",
		Questions: []string{"q1", "q2"},
		Answers:   []string{"a1", ""},
	}
}

func TestEvaluateParsesFencedResponse(t *testing.T) {
	generator := &stubGenerator{
		response: "```json\n" + `{
  "score": 82,
  "strengths": ["clear communication", "relevant experience"],
  "weaknesses": ["no cloud exposure"],
  "decision": "recommended",
  "summary": "Solid overall."
}` + "\n```",
	}
	evaluator := NewEvaluator(generator, nil, time.Second, 0)

	evaluation, err := evaluator.Evaluate(context.Background(), evaluationRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if evaluation.Score != 82 {
		t.Fatalf("unexpected score %v", evaluation.Score)
	}
	if len(evaluation.Strengths) != 2 || len(evaluation.Weaknesses) != 1 {
		t.Fatalf("unexpected strengths/weaknesses: %v / %v", evaluation.Strengths, evaluation.Weaknesses)
	}
	if evaluation.Decision != "recommended" || evaluation.Summary != "Solid overall." {
		t.Fatalf("unexpected evaluation %+v", evaluation)
	}
}

func TestEvaluateCoercesLooseTypes(t *testing.T) {
	generator := &stubGenerator{
		response: `{"score": "88.5", "strengths": "gets things done", "summary": "ok"}`,
	}
	evaluator := NewEvaluator(generator, nil, time.Second, 0)

	evaluation, err := evaluator.Evaluate(context.Background(), evaluationRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if evaluation.Score != 88.5 {
		t.Fatalf("expected the string score parsed, got %v", evaluation.Score)
	}
	if len(evaluation.Strengths) != 1 || evaluation.Strengths[0] != "gets things done" {
		t.Fatalf("expected a single-string strengths list, got %v", evaluation.Strengths)
	}
}

func TestEvaluateMissingScoreDefaultsToZero(t *testing.T) {
	generator := &stubGenerator{response: `{"summary": "no idea"}`}
	evaluator := NewEvaluator(generator, nil, time.Second, 0)

	evaluation, err := evaluator.Evaluate(context.Background(), evaluationRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if evaluation.Score != 0 {
		t.Fatalf("expected score 0, got %v", evaluation.Score)
	}
}

func TestEvaluatePropagatesGeneratorError(t *testing.T) {
	generator := &stubGenerator{err: errors.New("rpc unavailable")}
	evaluator := NewEvaluator(generator, nil, time.Second, 0)

	if _, err := evaluator.Evaluate(context.Background(), evaluationRequest()); err == nil {
		t.Fatal("expected the upstream error to propagate")
	}
}

func TestEvaluateRejectsGarbagePayload(t *testing.T) {
	generator := &stubGenerator{response: "no json here"}
	evaluator := NewEvaluator(generator, nil, time.Second, 0)

	if _, err := evaluator.Evaluate(context.Background(), evaluationRequest()); err == nil {
		t.Fatal("expected a parse error for a non-JSON payload")
	}
}

func TestBuildEvaluatorPromptMarksUnanswered(t *testing.T) {
	prompt, err := buildEvaluatorPrompt(evaluationRequest())
	if err != nil {
		t.Fatalf("buildEvaluatorPrompt: %v", err)
	}

	if !strings.Contains(prompt, `"answered": true`) || !strings.Contains(prompt, `"answered": false`) {
		t.Fatal("prompt must carry the answered flag per question")
	}
	if !strings.Contains(prompt, "Backend Engineer") || !strings.Contains(prompt, "Payments platform team.") {
		t.Fatal("prompt is missing the job context")
	}
	if strings.Contains(prompt, "{{") {
		t.Fatal("prompt still contains unresolved placeholders")
	}
}

func TestBuildEvaluatorPromptEmptyRoleInfo(t *testing.T) {
	req := evaluationRequest()
	req.RoleInfo = "  "

	prompt, err := buildEvaluatorPrompt(req)
	if err != nil {
		t.Fatalf("buildEvaluatorPrompt: %v", err)
	}
	if !strings.Contains(prompt, "none provided") {
		t.Fatal("empty role info must be replaced with a placeholder")
	}
}
