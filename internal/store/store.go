// Package store keeps the client-side mirror of topics and questions in
// sync with the server. The mirror is a read cache: the server is
// authoritative, writes are applied optimistically for latency, and
// server responses are reconciled under a last-local-edit-wins rule so an
// in-flight response never visually reverts a newer user action.
package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/api"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/model"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/rate"
)

// Options tune the store's request shaping. Zero durations fall back to
// the defaults the web client shipped with.
type Options struct {
	FetchAllInterval   time.Duration
	FetchTopicInterval time.Duration
	NotesDebounce      time.Duration
	Logger             *log.Logger
	// OnError receives failures of async operations. The optimistic
	// local value is kept either way; the callback exists so a view can
	// show a notice or retry. Defaults to logging.
	OnError func(op string, err error)
}

// Store owns the mirror. It is the only writer; every external read is a
// snapshot or a pure projection.
type Store struct {
	client *api.Client
	logger *log.Logger

	mu       sync.RWMutex
	topics   []*model.Topic
	progress map[string]model.TopicProgress
	loading  bool
	loadErr  error
	seq      uint64
	edits    map[string]uint64

	fetchAll   *rate.Throttle
	fetchTopic *rate.Throttle

	notesMu sync.Mutex
	notes   map[string]*rate.Debounce
	quiet   time.Duration

	onError func(op string, err error)
	wg      sync.WaitGroup
}

func New(client *api.Client, opts Options) *Store {
	if opts.FetchAllInterval <= 0 {
		opts.FetchAllInterval = 1500 * time.Millisecond
	}
	if opts.FetchTopicInterval <= 0 {
		opts.FetchTopicInterval = time.Second
	}
	if opts.NotesDebounce <= 0 {
		opts.NotesDebounce = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		client:     client,
		logger:     logger,
		progress:   make(map[string]model.TopicProgress),
		edits:      make(map[string]uint64),
		fetchAll:   rate.NewThrottle(opts.FetchAllInterval),
		fetchTopic: rate.NewThrottle(opts.FetchTopicInterval),
		notes:      make(map[string]*rate.Debounce),
		quiet:      opts.NotesDebounce,
	}
	s.onError = opts.OnError
	if s.onError == nil {
		s.onError = func(op string, err error) {
			logger.Printf("store: %s failed: %v", op, err)
		}
	}
	return s
}

// FetchAll refreshes the whole mirror. Rapid successive calls collapse to
// at most one leading and one trailing network round per throttle window.
// The fetch itself runs asynchronously and never blocks the caller.
func (s *Store) FetchAll(ctx context.Context) {
	s.fetchAll.Do(func() {
		// The sequence snapshot is taken before the request leaves, so
		// any edit made after this call returns outranks the response.
		s.mu.Lock()
		s.loading = true
		issued := s.seq
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.doFetchAll(ctx, issued)
		}()
	})
}

func (s *Store) doFetchAll(ctx context.Context, issued uint64) {
	var (
		topics   []model.Topic
		progress []model.TopicProgress
		terr     error
		perr     error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		topics, terr = s.client.AllTopics(ctx)
	}()
	go func() {
		defer wg.Done()
		progress, perr = s.client.EachTopicProgress(ctx)
	}()
	wg.Wait()

	if terr != nil {
		s.failLoad("fetch-all", terr)
		return
	}
	if perr != nil {
		s.failLoad("fetch-all", perr)
		return
	}

	fresh := make([]*model.Topic, len(topics))
	for i := range topics {
		fresh[i] = topics[i].Clone()
	}

	s.mu.Lock()
	s.replayLocalEdits(fresh, issued)
	s.topics = fresh
	s.progress = make(map[string]model.TopicProgress, len(progress))
	for _, row := range progress {
		s.progress[row.TopicName] = row
	}
	s.loading = false
	s.loadErr = nil
	s.mu.Unlock()
}

// FetchTopic loads one topic and upserts it into the mirror by id,
// throttled independently of FetchAll so topic-page navigation cannot
// flood the API.
func (s *Store) FetchTopic(ctx context.Context, name string) {
	s.fetchTopic.Do(func() {
		issued := s.currentSeq()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.doFetchTopic(ctx, name, issued)
		}()
	})
}

func (s *Store) doFetchTopic(ctx context.Context, name string, issued uint64) {
	topic, err := s.client.Topic(ctx, name)
	if err != nil {
		s.onError("fetch-topic", err)
		return
	}

	incoming := topic.Clone()
	s.mu.Lock()
	s.replayLocalEdits([]*model.Topic{incoming}, issued)
	replaced := false
	for i, existing := range s.topics {
		if existing.ID == incoming.ID {
			// Replace only this entry; unrelated entries keep their
			// identity.
			s.topics[i] = incoming
			replaced = true
			break
		}
	}
	if !replaced {
		s.topics = append(s.topics, incoming)
	}
	s.mu.Unlock()
}

// ToggleField flips done or bookmarked on one question: optimistic local
// apply first, async persistence second, canonical merge third. A failed
// write keeps the optimistic value and reports through OnError; silent
// reversion would surprise the user more than stale-but-visible state.
func (s *Store) ToggleField(ctx context.Context, topicID, questionID, field string, value bool) {
	if field != api.FieldDone && field != api.FieldBookmarked {
		s.onError("toggle-field", fmt.Errorf("store: field %q is not toggleable", field))
		return
	}

	s.mu.Lock()
	q := s.findQuestion(topicID, questionID)
	if q == nil {
		s.mu.Unlock()
		s.onError("toggle-field", fmt.Errorf("store: unknown question %s/%s", topicID, questionID))
		return
	}
	s.seq++
	issued := s.seq
	s.edits[editKey(topicID, questionID, field)] = issued
	switch field {
	case api.FieldDone:
		q.Done = value
	case api.FieldBookmarked:
		q.Bookmarked = value
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		topic, err := s.client.UpdateQuestion(ctx, topicID, questionID, field, value)
		if err != nil {
			s.onError("toggle-field", err)
			return
		}
		if canonical := topic.Question(questionID); canonical != nil {
			s.reconcile(topicID, questionID, canonical, issued)
		}
	}()
}

// SetNotes applies the text to the mirror synchronously on every call, so
// an input stays controlled by local state, and debounces persistence per
// question: only the final text after the user pauses typing is sent.
func (s *Store) SetNotes(ctx context.Context, topicID, questionID, text string) {
	s.mu.Lock()
	q := s.findQuestion(topicID, questionID)
	if q == nil {
		s.mu.Unlock()
		s.onError("set-notes", fmt.Errorf("store: unknown question %s/%s", topicID, questionID))
		return
	}
	s.seq++
	issued := s.seq
	s.edits[editKey(topicID, questionID, api.FieldNotes)] = issued
	q.Notes = text
	s.mu.Unlock()

	s.noteDebounce(topicID, questionID).Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			topic, err := s.client.UpdateQuestion(ctx, topicID, questionID, api.FieldNotes, text)
			if err != nil {
				s.onError("set-notes", err)
				return
			}
			if canonical := topic.Question(questionID); canonical != nil {
				s.reconcile(topicID, questionID, canonical, issued)
			}
		}()
	})
}

// reconcile merges a canonical server question into the mirror. The
// server wins on every field except one the user edited again after the
// request was issued: the sequence tag decides precedence per field.
func (s *Store) reconcile(topicID, questionID string, canonical *model.Question, issued uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.findQuestion(topicID, questionID)
	if q == nil {
		return
	}
	q.Problem = canonical.Problem
	if canonical.Links != nil {
		q.Links = append([]string(nil), canonical.Links...)
	}
	if s.edits[editKey(topicID, questionID, api.FieldDone)] <= issued {
		q.Done = canonical.Done
	}
	if s.edits[editKey(topicID, questionID, api.FieldBookmarked)] <= issued {
		q.Bookmarked = canonical.Bookmarked
	}
	if s.edits[editKey(topicID, questionID, api.FieldNotes)] <= issued {
		q.Notes = canonical.Notes
	}
}

// replayLocalEdits copies fields edited after a fetch was issued from the
// current mirror onto freshly fetched topics. Caller holds mu.
func (s *Store) replayLocalEdits(fresh []*model.Topic, issued uint64) {
	for key, seq := range s.edits {
		if seq <= issued {
			continue
		}
		topicID, questionID, field := splitEditKey(key)
		local := s.findQuestion(topicID, questionID)
		if local == nil {
			continue
		}
		var target *model.Question
		for _, t := range fresh {
			if t.ID == topicID {
				target = t.Question(questionID)
				break
			}
		}
		if target == nil {
			continue
		}
		switch field {
		case api.FieldDone:
			target.Done = local.Done
		case api.FieldBookmarked:
			target.Bookmarked = local.Bookmarked
		case api.FieldNotes:
			target.Notes = local.Notes
		}
	}
}

func (s *Store) failLoad(op string, err error) {
	s.mu.Lock()
	s.loading = false
	s.loadErr = err
	s.mu.Unlock()
	s.onError(op, err)
}

func (s *Store) currentSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

func (s *Store) findQuestion(topicID, questionID string) *model.Question {
	for _, t := range s.topics {
		if t.ID == topicID {
			return t.Question(questionID)
		}
	}
	return nil
}

func (s *Store) noteDebounce(topicID, questionID string) *rate.Debounce {
	key := topicID + "/" + questionID
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	d, ok := s.notes[key]
	if !ok {
		d = rate.NewDebounce(s.quiet)
		s.notes[key] = d
	}
	return d
}

const editKeySep = "\x1f"

func editKey(topicID, questionID, field string) string {
	return topicID + editKeySep + questionID + editKeySep + field
}

func splitEditKey(key string) (topicID, questionID, field string) {
	parts := strings.SplitN(key, editKeySep, 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}
