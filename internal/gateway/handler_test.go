package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hireflow/interviewer/internal/interview"
)

type stubEngine struct {
	replies []string
	err     error
	last    interview.Inbound
}

func (e *stubEngine) HandleTurn(_ context.Context, in interview.Inbound) ([]string, error) {
	e.last = in
	return e.replies, e.err
}

type recordingSender struct {
	sent []string
	err  error
}

func (s *recordingSender) Send(_ context.Context, _ string, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

type stubSubmissions struct {
	submission *interview.Submission
	err        error
}

func (s *stubSubmissions) Create(_ context.Context, _ *interview.Submission) error {
	return nil
}

func (s *stubSubmissions) GetByCandidate(_ context.Context, _ string, _ uint) (*interview.Submission, error) {
	return s.submission, s.err
}

func newTestRouter(engine *stubEngine, sender Sender, submissions interview.SubmissionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(engine, sender, submissions, 7, nil).Register(router)
	return router
}

func postInbound(router *gin.Engine, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestInboundRejectsInvalidPayload(t *testing.T) {
	router := newTestRouter(&stubEngine{}, nil, &stubSubmissions{})

	rec := postInbound(router, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInboundRejectsMissingSender(t *testing.T) {
	engine := &stubEngine{err: interview.ErrMissingSender}
	router := newTestRouter(engine, nil, &stubSubmissions{})

	rec := postInbound(router, `{"from": "", "text": "ready"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInboundEngineFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("db down")}
	router := newTestRouter(engine, nil, &stubSubmissions{})

	rec := postInbound(router, `{"from": "+15550001", "message_id": "m1", "text": "ready"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestInboundSendsRepliesInOrder(t *testing.T) {
	engine := &stubEngine{replies: []string{"first", "second"}}
	sender := &recordingSender{}
	router := newTestRouter(engine, sender, &stubSubmissions{})

	rec := postInbound(router, `{"from": "+15550001", "message_id": "m1", "text": "what do you mean?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if engine.last.Candidate != "+15550001" || engine.last.DeliveryID != "m1" {
		t.Fatalf("inbound not mapped to the engine: %+v", engine.last)
	}
	if len(sender.sent) != 2 || sender.sent[0] != "first" || sender.sent[1] != "second" {
		t.Fatalf("replies not sent in order: %v", sender.sent)
	}

	var body struct {
		Replies []string `json:"replies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Replies) != 2 {
		t.Fatalf("unexpected response body: %s", rec.Body.String())
	}
}

// A send failure never fails the webhook: the turn is already durably saved.
func TestInboundSendFailureStillSucceeds(t *testing.T) {
	engine := &stubEngine{replies: []string{"first"}}
	sender := &recordingSender{err: errors.New("gateway unreachable")}
	router := newTestRouter(engine, sender, &stubSubmissions{})

	rec := postInbound(router, `{"from": "+15550001", "message_id": "m1", "text": "hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite the send failure, got %d", rec.Code)
	}
}

func TestInboundEmptyRepliesShape(t *testing.T) {
	router := newTestRouter(&stubEngine{}, nil, &stubSubmissions{})

	rec := postInbound(router, `{"from": "+15550001", "message_id": "m1", "text": "ok"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"replies":[]`) {
		t.Fatalf("expected an empty replies array, got %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubEngine{}, nil, &stubSubmissions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSubmissionLookup(t *testing.T) {
	submissions := &stubSubmissions{submission: &interview.Submission{
		ID:        "sub-1",
		SessionID: "sess-1",
		JobID:     7,
		Score:     82,
		Decision:  interview.DecisionRecommended,
		Summary:   "solid",
		CreatedAt: time.Now().UTC(),
	}}
	router := newTestRouter(&stubEngine{}, nil, submissions)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submissions/+15550001", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"score":82`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestSubmissionLookupNotFound(t *testing.T) {
	router := newTestRouter(&stubEngine{}, nil, &stubSubmissions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submissions/+15550001", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
