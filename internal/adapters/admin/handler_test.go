package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

const token = "t0ken"

func newRouter(t *testing.T) (chi.Router, *repo.Memory) {
	t.Helper()
	store := repo.NewMemory()
	log := zerolog.Nop()
	r := chi.NewRouter()
	NewHandler(channels.NewService(store), suggestions.NewService(store, store, nil, log), log).Mount(r, token)
	return r, store
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestChannelLifecycle(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(r, http.MethodPut, "/api/v1/guilds/G1/channels/C42", `{"allowed_role_id":"R7","emojis":{"first":"👍","second":"👎"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodGet, "/api/v1/guilds/G1/channels", "")
	var list []domain.ChannelConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].AllowedRoleID != "R7" || list[0].Emojis.Second != "👎" {
		t.Fatalf("unexpected list %+v", list)
	}

	if rec := do(r, http.MethodDelete, "/api/v1/guilds/G1/channels/C42", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := do(r, http.MethodDelete, "/api/v1/guilds/G1/channels/C42", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/v1/guilds/G1/channels", ""); strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestPutChannelValidation(t *testing.T) {
	r, _ := newRouter(t)
	if rec := do(r, http.MethodPut, "/api/v1/guilds/G1/channels/C42", `{"emojis":{"first":"a","second":"b"}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing role, got %d", rec.Code)
	}
	if rec := do(r, http.MethodPut, "/api/v1/guilds/G1/channels/C42", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}
}

func TestGetSuggestion(t *testing.T) {
	r, store := newRouter(t)
	if _, err := store.Create(context.Background(), domain.NewSuggestion{GuildID: "G1", AuthorID: "U1", ChannelID: "C42", PresentationID: "P1", Content: "Add dark mode"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec := do(r, http.MethodGet, "/api/v1/suggestions/P1", "")
	var sg domain.Suggestion
	if err := json.Unmarshal(rec.Body.Bytes(), &sg); err != nil || sg.Status != domain.StatusPending || sg.AuthorID != "U1" {
		t.Fatalf("unexpected suggestion %+v %v", sg, err)
	}
	if rec := do(r, http.MethodGet, "/api/v1/suggestions/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRequiresToken(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/guilds/G1/channels", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
