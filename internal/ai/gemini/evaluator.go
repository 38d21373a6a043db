package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/ai"
	"github.com/hireflow/interviewer/internal/util"
)

//go:embed evaluator_prompt.md
var evaluatorPrompt string

// Evaluator scores a finished answer ledger through Gemini. Unlike the
// Responder it does return errors: the scoring pipeline owns the degraded
// fallback submission.
type Evaluator struct {
	generator contentGenerator
	logger    *zap.Logger
	timeout   time.Duration
	maxLogLen int
}

func NewEvaluator(generator contentGenerator, logger *zap.Logger, timeout time.Duration, maxLogLength int) *Evaluator {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		logger:    logger,
		timeout:   timeout,
		maxLogLen: maxLogLength,
	}
}

// Evaluate implements ai.Scorer.
func (e *Evaluator) Evaluate(ctx context.Context, req *ai.EvaluationRequest) (*ai.Evaluation, error) {
	if req == nil {
		return nil, fmt.Errorf("evaluation request is required")
	}

	prompt, err := buildEvaluatorPrompt(req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("evaluator request",
		zap.String("job_title", req.JobTitle),
		zap.Int("questions", len(req.Questions)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.generator.GenerateContent(callCtx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("evaluator response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseEvaluation(raw)
}

func buildEvaluatorPrompt(req *ai.EvaluationRequest) (string, error) {
	type qa struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Answered bool   `json:"answered"`
	}

	pairs := make([]qa, len(req.Questions))
	for i, question := range req.Questions {
		answer := ""
		if i < len(req.Answers) {
			answer = req.Answers[i]
		}
		pairs[i] = qa{Question: question, Answer: answer, Answered: answer != ""}
	}

	pairsJSON, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal interview transcript: %w", err)
	}

	roleInfo := strings.TrimSpace(req.RoleInfo)
	if roleInfo == "" {
		roleInfo = "none provided"
	}

	prompt := strings.ReplaceAll(evaluatorPrompt, "{{JOB_TITLE}}", req.JobTitle)
	prompt = strings.ReplaceAll(prompt, "{{ROLE_INFO}}", roleInfo)
	prompt = strings.ReplaceAll(prompt, "{{INTERVIEW_JSON}}", string(pairsJSON))
	return prompt, nil
}

func parseEvaluation(raw string) (*ai.Evaluation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse evaluation response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.Evaluation{
		Score:      score,
		Strengths:  coerceStrings(data["strengths"]),
		Weaknesses: coerceStrings(data["weaknesses"]),
		Decision:   coerceString(data["decision"]),
		Summary:    coerceString(data["summary"]),
	}, nil
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	default:
		return nil
	}
}
