package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"affection-tracker/internal/classifier"
	"affection-tracker/internal/config"
	"affection-tracker/internal/repository"
	"affection-tracker/internal/service"
)

func newTestRouter(t *testing.T, tokens *service.HostTokenService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scoring, err := config.DefaultScoring()
	if err != nil {
		t.Fatalf("default scoring: %v", err)
	}
	pipeline, err := service.NewScoringPipeline(scoring)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	mapper, err := service.NewDirectiveMapper(scoring.Bands)
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	cls := &classifier.MockClient{Response: `[{"label":"joy","score":0.9},{"label":"love","score":0.8}]`}
	turns := service.NewTurnService(cls, pipeline, mapper, nil, nil, zap.NewNop()).
		WithHistory(service.NewTurnHistoryService(repository.NewMemoryTurnReportRepository()))

	return NewRouter(zap.NewNop(), NewTurnHandler(zap.NewNop(), turns), tokens)
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func openSessionBody(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"subject_ids":  []string{"user"},
		"counterparts": []map[string]string{{"id": "elara", "name": "Elara"}},
	}
}

func TestTurnLifecycle(t *testing.T) {
	r := newTestRouter(t, nil)

	if w := doJSON(t, r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/sessions", "", openSessionBody("s1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/sessions/s1/turns", "", map[string]interface{}{
		"anonymized_id": "elara",
		"content":       "She smiles warmly.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("post turn: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var outcome service.TurnOutcome
	decodeBody(t, w, &outcome)
	if outcome.Report.Delta != 3 || outcome.Report.NewScore != 53 || outcome.Affection["user"]["elara"] != 53 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/s1/directives", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("directives: expected 200, got %d", w.Code)
	}
	var directives service.DirectiveOutput
	decodeBody(t, w, &directives)
	if !strings.Contains(directives.Directives, "{{char:elara}}") || len(directives.Lines) != 1 {
		t.Fatalf("unexpected directives: %+v", directives)
	}

	w = doJSON(t, r, http.MethodPut, "/sessions/s1/affection", "", map[string]interface{}{
		"affection": map[string]map[string]int{"user": {"elara": 12}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put affection: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/s1/affection", "", nil)
	var affection struct {
		Affection map[string]map[string]int `json:"affection"`
	}
	decodeBody(t, w, &affection)
	if affection.Affection["user"]["elara"] != 12 {
		t.Fatalf("expected host state applied, got %+v", affection.Affection)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/s1/turns?limit=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list turns: expected 200, got %d", w.Code)
	}
	var history struct {
		Turns []json.RawMessage `json:"turns"`
	}
	decodeBody(t, w, &history)
	if len(history.Turns) != 1 {
		t.Fatalf("expected 1 recorded turn, got %d", len(history.Turns))
	}
}

func TestTurnHandlerErrors(t *testing.T) {
	r := newTestRouter(t, nil)

	if w := doJSON(t, r, http.MethodGet, "/sessions/missing", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/sessions/missing/turns", "", map[string]string{"content": "hi"}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for turn on unknown session, got %d", w.Code)
	}

	doJSON(t, r, http.MethodPost, "/sessions", "", openSessionBody("s1"))
	if w := doJSON(t, r, http.MethodGet, "/sessions/s1/turns?limit=abc", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPut, "/sessions/s1/affection", "", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing affection, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestHostAuthMiddleware(t *testing.T) {
	tokens := service.NewHostTokenService("test-secret", "", time.Hour, nil)
	r := newTestRouter(t, tokens)

	scoped, err := tokens.Issue("host-1", "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := tokens.Issue("host-2", "s2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	global, err := tokens.Issue("host-3", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if w := doJSON(t, r, http.MethodPost, "/sessions", "", openSessionBody("s1")); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/sessions", "garbage", openSessionBody("s1")); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", w.Code)
	}

	// Un token con sesion fija abre esa sesion aunque el body no traiga id.
	w := doJSON(t, r, http.MethodPost, "/sessions", scoped.Token, openSessionBody(""))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var opened struct {
		Session service.SessionView `json:"session"`
	}
	decodeBody(t, w, &opened)
	if opened.Session.ID != "s1" {
		t.Fatalf("expected session id from token, got %q", opened.Session.ID)
	}

	if w := doJSON(t, r, http.MethodPost, "/sessions", scoped.Token, openSessionBody("s9")); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 opening another session, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/sessions/s1", other.Token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for token scoped to another session, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/sessions/s1", scoped.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for scoped token, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/sessions/s1", global.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for global token, got %d", w.Code)
	}

	if err := tokens.Revoke(global.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if w := doJSON(t, r, http.MethodGet, "/sessions/s1", global.Token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revocation, got %d", w.Code)
	}
}
