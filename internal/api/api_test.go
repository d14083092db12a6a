package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/auth"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/summarizer"
	"github.com/starford/ansuz/internal/testutil"
)

// testEnv wires a temp SQLite store, a stub AI provider, and the router with
// two known users. aiHandler may be nil for a provider that always succeeds.
func testEnv(t *testing.T, aiHandler http.HandlerFunc) (http.Handler, *noteservice.Service) {
	t.Helper()

	if aiHandler == nil {
		aiHandler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"summary":"Lake trip.","ai_model":"model-x"}`))
		}
	}
	aiSrv := httptest.NewServer(aiHandler)
	t.Cleanup(aiSrv.Close)

	db := testutil.TestDB(t)
	svc := noteservice.NewService(db, summarizer.NewHTTPClient(aiSrv.URL, 5*time.Second))
	resolver := auth.NewStatic(map[string]string{
		"tok-alice": "alice",
		"tok-bob":   "bob",
	})
	return NewRouter(svc, resolver, nil, nil), svc
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, token string, body map[string]any) models.Note {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notes", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return *resp.Note
}

func TestCreateAndGetNote(t *testing.T) {
	router, _ := testEnv(t, nil)

	note := createNote(t, router, "tok-alice", map[string]any{"title": "Trip", "content": "Went to the lake"})
	if note.ID == "" || note.OwnerID != "alice" {
		t.Errorf("note = %+v", note)
	}

	w := doJSON(t, router, http.MethodGet, "/notes/"+note.ID, "tok-alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Trip" || got.Content != "Went to the lake" {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	router, _ := testEnv(t, nil)

	w := doJSON(t, router, http.MethodPost, "/notes", "tok-alice", map[string]any{"title": "", "content": "c"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty title = %d, want 422", w.Code)
	}
	var resp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "validation failed" {
		t.Errorf("message = %q", resp.Message)
	}
	if _, ok := resp.Errors["Title"]; !ok {
		t.Errorf("errors = %v, want Title entry", resp.Errors)
	}

	w = doJSON(t, router, http.MethodPost, "/notes", "tok-alice", map[string]any{"title": "T", "content": ""})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty content = %d, want 422", w.Code)
	}
}

func TestUnauthenticated(t *testing.T) {
	router, _ := testEnv(t, nil)

	for _, token := range []string{"", "wrong"} {
		w := doJSON(t, router, http.MethodGet, "/notes", token, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("token %q = %d, want 401", token, w.Code)
		}
	}
}

func TestGetNote_NotOwner(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	w := doJSON(t, router, http.MethodGet, "/notes/"+note.ID, "tok-bob", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("other user's get = %d, want 403", w.Code)
	}
	var resp msgResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != "Unauthorized" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router, _ := testEnv(t, nil)
	w := doJSON(t, router, http.MethodGet, "/notes/no-such-id", "tok-alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestUpdateNote_Partial(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "keep me"})

	w := doJSON(t, router, http.MethodPatch, "/notes/"+note.ID, "tok-alice", map[string]any{"title": "T2"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Note.Title != "T2" || resp.Note.Content != "keep me" {
		t.Errorf("note = %+v", resp.Note)
	}

	// PUT behaves the same (partial semantics).
	w = doJSON(t, router, http.MethodPut, "/notes/"+note.ID, "tok-alice", map[string]any{"content": "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Note.Title != "T2" || resp.Note.Content != "new" {
		t.Errorf("note after put = %+v", resp.Note)
	}
}

func TestUpdateNote_Failures(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	if w := doJSON(t, router, http.MethodPut, "/notes/"+note.ID, "tok-bob", map[string]any{"title": "X"}); w.Code != http.StatusForbidden {
		t.Errorf("non-owner update = %d, want 403", w.Code)
	}
	if w := doJSON(t, router, http.MethodPut, "/notes/ghost", "tok-alice", map[string]any{"title": "X"}); w.Code != http.StatusNotFound {
		t.Errorf("missing update = %d, want 404", w.Code)
	}
	if w := doJSON(t, router, http.MethodPut, "/notes/"+note.ID, "tok-alice", map[string]any{"title": ""}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty title update = %d, want 422", w.Code)
	}
}

func TestDeleteNote_TwiceIs404(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	w := doJSON(t, router, http.MethodDelete, "/notes/"+note.ID, "tok-alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/notes/"+note.ID, "tok-alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestDeleteNote_NotOwner(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	if w := doJSON(t, router, http.MethodDelete, "/notes/"+note.ID, "tok-bob", nil); w.Code != http.StatusForbidden {
		t.Errorf("non-owner delete = %d, want 403", w.Code)
	}
	// Still there for the owner.
	if w := doJSON(t, router, http.MethodGet, "/notes/"+note.ID, "tok-alice", nil); w.Code != http.StatusOK {
		t.Errorf("owner get after denied delete = %d", w.Code)
	}
}

func TestListNotes_PaginationAndOrder(t *testing.T) {
	router, _ := testEnv(t, nil)
	for _, title := range []string{"first", "second", "third"} {
		createNote(t, router, "tok-alice", map[string]any{"title": title, "content": "c"})
		time.Sleep(2 * time.Millisecond)
	}
	createNote(t, router, "tok-bob", map[string]any{"title": "bobs", "content": "c"})

	w := doJSON(t, router, http.MethodGet, "/notes?page=1&page_size=2", "tok-alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || len(resp.Notes) != 2 {
		t.Fatalf("total = %d, len = %d", resp.Total, len(resp.Notes))
	}
	if resp.Notes[0].Title != "third" {
		t.Errorf("first listed = %q, want newest", resp.Notes[0].Title)
	}
	if resp.Page != 1 || resp.PageSize != 2 {
		t.Errorf("page meta = %d/%d", resp.Page, resp.PageSize)
	}
}

func TestSummarizeNote(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "Trip", "content": "Went to the lake"})

	w := doJSON(t, router, http.MethodPost, "/notes/"+note.ID+"/summarize", "tok-alice", map[string]any{"max_length": 100})
	if w.Code != http.StatusOK {
		t.Fatalf("summarize = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SummarizeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Summary != "Lake trip." || resp.AIModel != "model-x" {
		t.Errorf("resp = %+v", resp)
	}

	// Refetch: the triple is persisted, summary_length is the requested max.
	w = doJSON(t, router, http.MethodGet, "/notes/"+note.ID, "tok-alice", nil)
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Summary == nil || *got.Summary != "Lake trip." {
		t.Errorf("summary = %v", got.Summary)
	}
	if got.SummaryLength == nil || *got.SummaryLength != 100 {
		t.Errorf("summary_length = %v, want 100", got.SummaryLength)
	}
	if got.AIModelUsed == nil || *got.AIModelUsed != "model-x" {
		t.Errorf("ai_model_used = %v", got.AIModelUsed)
	}
}

func TestSummarizeNote_BadMaxLength(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	for _, maxLength := range []int{0, 49, 1001} {
		w := doJSON(t, router, http.MethodPost, "/notes/"+note.ID+"/summarize", "tok-alice", map[string]any{"max_length": maxLength})
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("max_length %d = %d, want 422", maxLength, w.Code)
		}
	}
}

func TestSummarizeNote_ProviderError(t *testing.T) {
	router, _ := testEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"Summarization failed"}`, http.StatusInternalServerError)
	})
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	w := doJSON(t, router, http.MethodPost, "/notes/"+note.ID+"/summarize", "tok-alice", map[string]any{"max_length": 100})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("summarize = %d, want 500", w.Code)
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != "AI service error" || resp.Error == "" {
		t.Errorf("resp = %+v, want provider body in error", resp)
	}

	// The note is not corrupted by the failure.
	w = doJSON(t, router, http.MethodGet, "/notes/"+note.ID, "tok-alice", nil)
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Summary != nil || got.SummaryLength != nil || got.AIModelUsed != nil {
		t.Errorf("failed summarize must persist nothing, got %+v", got)
	}
}

func TestSummarizeNote_NotOwner(t *testing.T) {
	aiCalled := false
	router, _ := testEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		aiCalled = true
		_, _ = w.Write([]byte(`{"summary":"s","ai_model":"m"}`))
	})
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c"})

	w := doJSON(t, router, http.MethodPost, "/notes/"+note.ID+"/summarize", "tok-bob", map[string]any{"max_length": 100})
	if w.Code != http.StatusForbidden {
		t.Errorf("non-owner summarize = %d, want 403", w.Code)
	}
	if aiCalled {
		t.Error("denied summarize must not reach the provider")
	}
}

func TestConversations(t *testing.T) {
	router, _ := testEnv(t, nil)

	createNote(t, router, "tok-alice", map[string]any{"title": "A", "content": "c", "is_conversation": true, "conversation_id": "c1"})
	time.Sleep(2 * time.Millisecond)
	createNote(t, router, "tok-alice", map[string]any{"title": "B", "content": "c", "is_conversation": true, "conversation_id": "c1"})
	createNote(t, router, "tok-alice", map[string]any{"title": "standalone", "content": "c"})

	w := doJSON(t, router, http.MethodGet, "/notes/conversations", "tok-alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("conversations = %d, body = %s", w.Code, w.Body.String())
	}
	var heads []models.ConversationHead
	_ = json.Unmarshal(w.Body.Bytes(), &heads)
	if len(heads) != 2 {
		t.Fatalf("len = %d, want 2 (grouping keys on title too)", len(heads))
	}

	w = doJSON(t, router, http.MethodGet, "/notes/conversations/c1", "tok-alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("thread = %d", w.Code)
	}
	var thread []models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &thread)
	if len(thread) != 2 {
		t.Fatalf("thread len = %d, want 2", len(thread))
	}
	if thread[0].Title != "A" || thread[1].Title != "B" {
		t.Errorf("thread order = %q, %q; want chronological", thread[0].Title, thread[1].Title)
	}
}

func TestConversationGeneratedID(t *testing.T) {
	router, _ := testEnv(t, nil)
	note := createNote(t, router, "tok-alice", map[string]any{"title": "T", "content": "c", "is_conversation": true})
	if note.ConversationID == "" {
		t.Error("conversation id should be generated when absent")
	}
}

func TestConversationsScopedToUser(t *testing.T) {
	router, _ := testEnv(t, nil)
	createNote(t, router, "tok-bob", map[string]any{"title": "B", "content": "c", "is_conversation": true, "conversation_id": "c1"})

	w := doJSON(t, router, http.MethodGet, "/notes/conversations", "tok-alice", nil)
	var heads []models.ConversationHead
	_ = json.Unmarshal(w.Body.Bytes(), &heads)
	if len(heads) != 0 {
		t.Errorf("alice sees bob's conversations: %+v", heads)
	}

	w = doJSON(t, router, http.MethodGet, "/notes/conversations/c1", "tok-alice", nil)
	var thread []models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &thread)
	if len(thread) != 0 {
		t.Errorf("alice sees bob's thread: %+v", thread)
	}
}

func TestEventsEndpointAuthProtected(t *testing.T) {
	db := testutil.TestDB(t)
	svc := noteservice.NewService(db, summarizer.NewHTTPClient("http://unused", time.Second))
	resolver := auth.NewStatic(map[string]string{"tok": "u"})

	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(svc, resolver, events, nil)

	w := doJSON(t, router, http.MethodGet, "/events", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("events no auth = %d, want 401", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/events", "tok", nil)
	if w.Code != http.StatusOK {
		t.Errorf("events with auth = %d, want 200", w.Code)
	}
}
