package gemini

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/ai"
	"github.com/hireflow/interviewer/internal/util"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed responder_prompt.md
var responderPrompt string

const (
	defaultMaxLogLength = 200
	defaultCallTimeout  = 30 * time.Second
)

// Responder resolves ambiguous candidate turns through Gemini. It never
// propagates upstream failures: network errors, non-JSON payloads and missing
// fields all degrade to the ask-again default.
type Responder struct {
	generator contentGenerator
	logger    *zap.Logger
	timeout   time.Duration
	maxLogLen int
}

func NewResponder(generator contentGenerator, logger *zap.Logger, timeout time.Duration, maxLogLength int) *Responder {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Responder{
		generator: generator,
		logger:    logger,
		timeout:   timeout,
		maxLogLen: maxLogLength,
	}
}

// Respond implements ai.Delegate. The returned reply is always usable; the
// error is never non-nil.
func (r *Responder) Respond(ctx context.Context, req *ai.TurnRequest) (*ai.TurnReply, error) {
	if req == nil {
		return ai.AskAgainDefault(), nil
	}

	prompt := buildResponderPrompt(req)

	r.logger.Debug("responder request",
		zap.String("question", util.TruncateForLog(req.Question, r.maxLogLen)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.generator.GenerateContent(callCtx, prompt)
	if err != nil {
		r.logger.Warn("responder call failed, degrading to ask_again", zap.Error(err))
		return ai.AskAgainDefault(), nil
	}

	r.logger.Debug("responder response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, r.maxLogLen)),
	)

	reply, err := parseTurnReply(raw)
	if err != nil {
		r.logger.Warn("responder payload unparseable, degrading to ask_again", zap.Error(err))
		return ai.AskAgainDefault(), nil
	}

	return reply, nil
}

func buildResponderPrompt(req *ai.TurnRequest) string {
	ledger := req.Ledger
	if ledger == nil {
		ledger = []ai.LedgerEntry{}
	}
	ledgerJSON, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		ledgerJSON = []byte("[]")
	}

	prompt := strings.ReplaceAll(responderPrompt, "{{JOB_TITLE}}", req.JobTitle)
	prompt = strings.ReplaceAll(prompt, "{{QUESTION}}", req.Question)
	prompt = strings.ReplaceAll(prompt, "{{LEDGER_JSON}}", string(ledgerJSON))
	prompt = strings.ReplaceAll(prompt, "{{MESSAGE}}", req.Message)
	return prompt
}

// turnReplyWire is the tolerated upstream shape. Types are weakly coerced so
// that a model returning a numeric or boolean field does not break the turn.
type turnReplyWire struct {
	Reply    string `mapstructure:"reply"`
	Answer   string `mapstructure:"answer"`
	Action   string `mapstructure:"action"`
	FollowUp string `mapstructure:"follow_up"`
}

func parseTurnReply(raw string) (*ai.TurnReply, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, err
	}

	var wire turnReplyWire
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &wire,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, err
	}

	return &ai.TurnReply{
		Reply:    sanitizeReply(wire.Reply),
		Answer:   strings.TrimSpace(wire.Answer),
		Action:   ai.ParseAction(wire.Action),
		FollowUp: sanitizeReply(wire.FollowUp),
	}, nil
}

// bannedReplyPhrases mark sentences that either offer to author the
// candidate's answer for them or loop back into meta "anything else?"
// questions. Both are dropped from outbound text.
var bannedReplyPhrases = []string{
	"i can answer for you", "i could answer for you", "answer on your behalf",
	"want me to answer", "shall i answer", "i can write your answer",
	"let me answer that for you", "here is an answer you could give",
	"anything else", "is there anything else", "any other questions",
	"algo mas", "alguna otra pregunta", "quieres que responda por ti",
	"puedo responder por ti", "respondo por ti",
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*\s*`)

// sanitizeReply drops sentences matching the banned phrase list and returns
// the remaining text trimmed.
func sanitizeReply(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var kept []string
	for _, sentence := range sentencePattern.FindAllString(text, -1) {
		if containsBannedPhrase(sentence) {
			continue
		}
		if trimmed := strings.TrimSpace(sentence); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.Join(kept, " ")
}

func containsBannedPhrase(sentence string) bool {
	lower := strings.ToLower(sentence)
	// strip accents cheaply for the spanish phrases
	lower = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(lower)
	for _, phrase := range bannedReplyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// extractJSON unwraps fenced code blocks and falls back to the first
// brace-delimited object found in the raw text.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if json.Valid([]byte(raw)) {
		return raw
	}
	if obj := firstJSONObject(raw); obj != "" {
		return obj
	}
	return raw
}

// firstJSONObject returns the first balanced brace-delimited object in the
// text, or an empty string when none exists.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
