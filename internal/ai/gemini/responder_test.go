package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hireflow/interviewer/internal/ai"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func testRequest() *ai.TurnRequest {
	return &ai.TurnRequest{
		JobTitle: "Backend Engineer",
		Question: "Tell me about your most recent role.",
		Ledger:   []ai.LedgerEntry{{Question: "q0", Answer: "a0"}},
		Message:  "I was a platform engineer for four years.",
	}
}

func TestRespondParsesPlainJSON(t *testing.T) {
	generator := &stubGenerator{
		response: `{"reply": "Thanks!", "answer": "Platform engineer for four years.", "action": "answer", "follow_up": null}`,
	}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Action != ai.ActionAnswer {
		t.Fatalf("expected answer action, got %q", reply.Action)
	}
	if reply.Answer != "Platform engineer for four years." {
		t.Fatalf("unexpected answer %q", reply.Answer)
	}
	if reply.Reply != "Thanks!" {
		t.Fatalf("unexpected reply %q", reply.Reply)
	}
}

func TestRespondUnwrapsCodeFence(t *testing.T) {
	generator := &stubGenerator{
		response: "```json\n{\"reply\": \"Understood.\", \"action\": \"clarify\"}\n```",
	}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Action != ai.ActionClarify || reply.Reply != "Understood." {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestRespondExtractsObjectFromProse(t *testing.T) {
	generator := &stubGenerator{
		response: `Sure, here you go: {"reply": "Noted.", "action": "guide", "follow_up": "What was the team size?"} hope that helps`,
	}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Action != ai.ActionGuide || reply.FollowUp != "What was the team size?" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestRespondNormalizesUnknownAction(t *testing.T) {
	generator := &stubGenerator{
		response: `{"reply": "Hmm.", "action": "escalate_to_human"}`,
	}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Action != ai.ActionAskAgain {
		t.Fatalf("unknown actions must normalize to ask_again, got %q", reply.Action)
	}
}

func TestRespondDegradesOnGeneratorError(t *testing.T) {
	generator := &stubGenerator{err: errors.New("rpc unavailable")}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("upstream failures must not propagate, got %v", err)
	}
	if reply.Action != ai.ActionAskAgain || reply.Reply != "" {
		t.Fatalf("expected the ask-again default, got %+v", reply)
	}
}

func TestRespondDegradesOnGarbagePayload(t *testing.T) {
	generator := &stubGenerator{response: "I'd rather chat about the weather."}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unparseable payloads must not propagate, got %v", err)
	}
	if reply.Action != ai.ActionAskAgain {
		t.Fatalf("expected the ask-again default, got %+v", reply)
	}
}

func TestRespondCoercesWeaklyTypedFields(t *testing.T) {
	generator := &stubGenerator{
		response: `{"reply": "Got it.", "answer": 2019, "action": "answer"}`,
	}
	responder := NewResponder(generator, nil, time.Second, 0)

	reply, err := responder.Respond(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Answer != "2019" {
		t.Fatalf("expected the numeric answer coerced to a string, got %q", reply.Answer)
	}
}

func TestBuildResponderPromptSubstitution(t *testing.T) {
	req := testRequest()
	prompt := buildResponderPrompt(req)

	for _, want := range []string{req.JobTitle, req.Question, req.Message, `"q0"`, `"a0"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q", want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatal("prompt still contains unresolved placeholders")
	}
}

func TestSanitizeReply(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"authoring offer dropped",
			"I can answer for you if you want. The question asks about your last employer.",
			"The question asks about your last employer.",
		},
		{
			"meta loop dropped entirely",
			"Anything else?",
			"",
		},
		{
			"spanish accented variant dropped",
			"Buena pregunta. ¿Alguna otra pregunta?",
			"Buena pregunta.",
		},
		{
			"clean text untouched",
			"The question is about your most recent position.",
			"The question is about your most recent position.",
		},
		{
			"empty",
			"   ",
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeReply(tc.in); got != tc.want {
				t.Fatalf("sanitizeReply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFirstJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"nested braces", `x {"a": {"b": 2}} y`, `{"a": {"b": 2}}`},
		{"brace inside string", `{"a": "}"}`, `{"a": "}"}`},
		{"unbalanced", `{"a": 1`, ""},
		{"no object", "plain text", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstJSONObject(tc.in); got != tc.want {
				t.Fatalf("firstJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
