package store

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/api"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/apitest"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/config"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/model"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
)

func seedTopics() []model.Topic {
	return []model.Topic{
		{
			ID:   "t1",
			Name: "Array",
			Questions: []model.Question{
				{ID: "q1", Problem: "Two Sum"},
				{ID: "q2", Problem: "Rotate Array"},
				{ID: "q3", Problem: "Max Subarray"},
			},
		},
		{
			ID:   "t2",
			Name: "String",
			Questions: []model.Question{
				{ID: "q4", Problem: "Reverse Words", Bookmarked: true},
			},
		},
	}
}

type testEnv struct {
	store   *Store
	backend *apitest.Server

	mu     sync.Mutex
	errors []string
}

func (e *testEnv) errs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.errors...)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := apitest.New()
	backend.Seed(seedTopics())
	app := httptest.NewServer(backend.Router())
	t.Cleanup(app.Close)

	env := &testEnv{backend: backend}
	env.store = newStoreFor(t, app.URL, env)
	return env
}

func newStoreFor(t *testing.T, baseURL string, env *testEnv) *Store {
	t.Helper()
	cfg := config.Config{APIBaseURL: baseURL, HTTPTimeout: 5 * time.Second}
	tokens := session.NewMemStore(apitest.Token(session.RoleUser, time.Hour))
	client := api.New(cfg, tokens, log.New(io.Discard, "", 0))
	s := New(client, Options{
		FetchAllInterval:   20 * time.Millisecond,
		FetchTopicInterval: 20 * time.Millisecond,
		NotesDebounce:      30 * time.Millisecond,
		Logger:             log.New(io.Discard, "", 0),
		OnError: func(op string, err error) {
			if env != nil {
				env.mu.Lock()
				env.errors = append(env.errors, op+": "+err.Error())
				env.mu.Unlock()
			}
		},
	})
	t.Cleanup(s.Close)
	return s
}

func mustFlush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush error: %v", err)
	}
}

func loadMirror(t *testing.T, env *testEnv) {
	t.Helper()
	env.store.FetchAll(context.Background())
	mustFlush(t, env.store)
	if _, err := env.store.LoadState(); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
}

func TestFetchAllPopulatesMirror(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)

	topics := env.store.Topics()
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	if topics[0].Name != "Array" || len(topics[0].Questions) != 3 {
		t.Fatalf("unexpected first topic: %+v", topics[0])
	}
	if row, ok := env.store.ServerProgress("Array"); !ok || row.TotalQuestions != 3 {
		t.Fatalf("expected server progress for Array, got %+v ok=%v", row, ok)
	}
}

func TestOptimisticToggleAndDerivedPercent(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)

	env.store.ToggleField(context.Background(), "t1", "q2", api.FieldDone, true)

	// The mirror reflects the change before any network round trip.
	topic, ok := env.store.Topic("Array")
	if !ok {
		t.Fatalf("topic missing")
	}
	if !topic.Question("q2").Done {
		t.Fatalf("expected optimistic done=true")
	}
	if got := topic.PercentCompleted(); got != 33 {
		t.Fatalf("expected 33%% from 1/3 done, got %d%%", got)
	}

	mustFlush(t, env.store)
	if errs := env.errs(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestRejectedWriteKeepsOptimisticValue(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)
	env.backend.FailPatch(true)

	env.store.ToggleField(context.Background(), "t1", "q2", api.FieldDone, true)
	mustFlush(t, env.store)

	topic, _ := env.store.Topic("Array")
	if !topic.Question("q2").Done {
		t.Fatalf("expected optimistic value to survive a rejected write")
	}
	if got := topic.PercentCompleted(); got != 33 {
		t.Fatalf("expected 33%% kept after rejection, got %d%%", got)
	}
	errs := env.errs()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one reported error, got %v", errs)
	}
}

func TestFetchTopicUpsert(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)

	untouched := env.store.topics[0]
	replaced := env.store.topics[1]

	// Present topic: replaced in place, unrelated entries untouched.
	env.store.FetchTopic(context.Background(), "String")
	mustFlush(t, env.store)

	after := env.store.topics
	if len(after) != 2 {
		t.Fatalf("expected upsert to keep 2 topics, got %d", len(after))
	}
	if after[0] != untouched {
		t.Fatalf("expected unrelated topic entry to keep its identity")
	}
	if after[1] == replaced {
		t.Fatalf("expected the fetched topic entry to be replaced")
	}

	// Absent topic: appended exactly once.
	env.backend.Seed(append(seedTopics(), model.Topic{
		ID:   "t3",
		Name: "Matrix",
		Questions: []model.Question{
			{ID: "q5", Problem: "Spiral Order"},
		},
	}))
	time.Sleep(30 * time.Millisecond)
	env.store.FetchTopic(context.Background(), "Matrix")
	mustFlush(t, env.store)

	if got := len(env.store.topics); got != 3 {
		t.Fatalf("expected new topic appended, got %d entries", got)
	}
	if _, ok := env.store.Topic("Matrix"); !ok {
		t.Fatalf("expected Matrix present after upsert")
	}
}

func TestThrottledFetchAll(t *testing.T) {
	backend := apitest.New()
	backend.Seed(seedTopics())
	app := httptest.NewServer(backend.Router())
	t.Cleanup(app.Close)

	cfg := config.Config{APIBaseURL: app.URL, HTTPTimeout: 5 * time.Second}
	client := api.New(cfg, session.NewMemStore(apitest.Token(session.RoleUser, time.Hour)), log.New(io.Discard, "", 0))
	s := New(client, Options{
		FetchAllInterval:   80 * time.Millisecond,
		FetchTopicInterval: 80 * time.Millisecond,
		NotesDebounce:      30 * time.Millisecond,
		Logger:             log.New(io.Discard, "", 0),
	})
	t.Cleanup(s.Close)

	for i := 0; i < 6; i++ {
		s.FetchAll(context.Background())
	}
	time.Sleep(150 * time.Millisecond)
	mustFlush(t, s)

	all, _, _, _ := backend.Calls()
	if all < 1 || all > 2 {
		t.Fatalf("expected one leading and at most one trailing fetch, got %d", all)
	}
	if got := len(s.Topics()); got != 2 {
		t.Fatalf("expected mirror populated after throttled fetches, got %d topics", got)
	}
}

func TestNotesDebounceSendsLastValueOnce(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)
	_, _, _, patchesBefore := env.backend.Calls()

	ctx := context.Background()
	for _, text := range []string{"t", "tw", "two", "two p", "two pointers"} {
		env.store.SetNotes(ctx, "t1", "q1", text)
	}

	// Local state tracks every keystroke.
	topic, _ := env.store.Topic("Array")
	if got := topic.Question("q1").Notes; got != "two pointers" {
		t.Fatalf("expected local notes to hold latest text, got %q", got)
	}

	mustFlush(t, env.store)

	_, _, _, patches := env.backend.Calls()
	if patches-patchesBefore != 1 {
		t.Fatalf("expected exactly one persistence call, got %d", patches-patchesBefore)
	}
	// The server holds the final value.
	marks := mustServerTopic(t, env, "Array")
	if got := marks.Question("q1").Notes; got != "two pointers" {
		t.Fatalf("expected server to hold last edit, got %q", got)
	}
}

func TestNotesDebouncePerQuestion(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)
	_, _, _, patchesBefore := env.backend.Calls()

	ctx := context.Background()
	env.store.SetNotes(ctx, "t1", "q1", "note one")
	env.store.SetNotes(ctx, "t1", "q2", "note two")
	mustFlush(t, env.store)

	_, _, _, patches := env.backend.Calls()
	if patches-patchesBefore != 2 {
		t.Fatalf("expected independent debouncers per question, got %d calls", patches-patchesBefore)
	}
}

func TestBookmarkRemovalLeavesFilteredViewImmediately(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)

	if got := len(env.store.Bookmarked()); got != 1 {
		t.Fatalf("expected one bookmark in the derived view, got %d", got)
	}

	env.store.ToggleField(context.Background(), "t2", "q4", api.FieldBookmarked, false)

	// Gone from the projection before the write is even flushed.
	if got := len(env.store.Bookmarked()); got != 0 {
		t.Fatalf("expected bookmark removed from the filtered view immediately, got %d", got)
	}
	mustFlush(t, env.store)
}

func TestFetchFailureLeavesMirrorUntouched(t *testing.T) {
	env := newTestEnv(t)
	loadMirror(t, env)
	before := env.store.Topics()

	env.backend.FailFetch(true)
	time.Sleep(30 * time.Millisecond)
	env.store.FetchAll(context.Background())
	mustFlush(t, env.store)

	if _, err := env.store.LoadState(); err == nil {
		t.Fatalf("expected a retryable load failure state")
	}
	after := env.store.Topics()
	if len(after) != len(before) {
		t.Fatalf("expected mirror unchanged after failed fetch")
	}
	for i := range after {
		if after[i].ID != before[i].ID || len(after[i].Questions) != len(before[i].Questions) {
			t.Fatalf("expected mirror contents unchanged after failed fetch")
		}
	}

	// A later successful fetch clears the failure state.
	env.backend.FailFetch(false)
	time.Sleep(30 * time.Millisecond)
	env.store.FetchAll(context.Background())
	mustFlush(t, env.store)
	if _, err := env.store.LoadState(); err != nil {
		t.Fatalf("expected load state cleared, got %v", err)
	}
}

func TestLastLocalEditWinsOverReorderedResponses(t *testing.T) {
	// A boundary where the response to the first write arrives after the
	// response to the second: the slow handler answers done=true writes
	// late, so the canonical done=true response lands after the user has
	// already toggled back to false.
	release := make(chan struct{})
	r := chi.NewRouter()
	r.Patch("/topic/{topicId}/questions/{questionId}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Field string `json:"field"`
			Value any    `json:"value"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		value := boolValue(body.Value)
		if value {
			<-release
		}
		canonical := model.Topic{
			ID:   "t1",
			Name: "Array",
			Questions: []model.Question{
				{ID: "q1", Problem: "Two Sum"},
				{ID: "q2", Problem: "Rotate Array", Done: value},
				{ID: "q3", Problem: "Max Subarray"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"topic": canonical})
	})
	r.Get("/topic/get-allTopics", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"topics": seedTopics()})
	})
	r.Get("/topic/each-topic/progress", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"progress": []model.TopicProgress{}})
	})
	app := httptest.NewServer(r)
	t.Cleanup(app.Close)

	s := newStoreFor(t, app.URL, nil)
	s.FetchAll(context.Background())
	mustFlush(t, s)

	ctx := context.Background()
	s.ToggleField(ctx, "t1", "q2", api.FieldDone, true)  // response held back
	s.ToggleField(ctx, "t1", "q2", api.FieldDone, false) // responds immediately
	time.Sleep(50 * time.Millisecond)                    // fast response reconciles first
	close(release)                                       // now the stale response lands
	mustFlush(t, s)

	topic, _ := s.Topic("Array")
	if topic.Question("q2").Done {
		t.Fatalf("expected the chronologically last toggle (false) to win over the late response")
	}
}

func TestFetchAllDoesNotRevertInFlightEdit(t *testing.T) {
	// The refetch response is held back until after a local edit, so the
	// wholesale replace carries a snapshot that predates the edit. The
	// edit outranks it and must survive.
	release := make(chan struct{})
	first := true
	var mu sync.Mutex

	r := chi.NewRouter()
	r.Get("/topic/get-allTopics", func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		hold := !first
		first = false
		mu.Unlock()
		if hold {
			<-release
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"topics": seedTopics()})
	})
	r.Get("/topic/each-topic/progress", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"progress": []model.TopicProgress{}})
	})
	r.Patch("/topic/{topicId}/questions/{questionId}", func(w http.ResponseWriter, req *http.Request) {
		canonical := seedTopics()[0]
		canonical.Questions[2].Done = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"topic": canonical})
	})
	app := httptest.NewServer(r)
	t.Cleanup(app.Close)

	s := newStoreFor(t, app.URL, nil)
	s.FetchAll(context.Background())
	mustFlush(t, s)

	time.Sleep(30 * time.Millisecond)
	s.FetchAll(context.Background()) // response held back
	s.ToggleField(context.Background(), "t1", "q3", api.FieldDone, true)
	close(release)
	mustFlush(t, s)

	topic, _ := s.Topic("Array")
	if !topic.Question("q3").Done {
		t.Fatalf("expected local edit to survive the overlapping refetch")
	}
}

func mustServerTopic(t *testing.T, env *testEnv, name string) *model.Topic {
	t.Helper()
	env.store.FetchTopic(context.Background(), name)
	mustFlush(t, env.store)
	topic, ok := env.store.Topic(name)
	if !ok {
		t.Fatalf("topic %q missing", name)
	}
	return topic
}

func boolValue(value any) bool {
	b, _ := value.(bool)
	return b
}
