package store

import (
	"context"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/model"
)

// Topics returns a deep-copied snapshot of the mirror in display order.
func (s *Store) Topics() []*model.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out
}

// Topic returns a copy of the named topic.
func (s *Store) Topic(name string) (*model.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.topics {
		if t.Name == name {
			return t.Clone(), true
		}
	}
	return nil, false
}

// TopicByID returns a copy of the topic with the given id.
func (s *Store) TopicByID(id string) (*model.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.topics {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return nil, false
}

// Bookmarked projects the bookmarked questions out of the mirror. An
// optimistic un-bookmark drops out of this view immediately, with no
// refetch.
func (s *Store) Bookmarked() []model.BookmarkedQuestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookmarkedQuestion
	for _, t := range s.topics {
		for i := range t.Questions {
			q := &t.Questions[i]
			if !q.Bookmarked {
				continue
			}
			out = append(out, model.BookmarkedQuestion{
				TopicID:    t.ID,
				TopicName:  t.Name,
				QuestionID: q.ID,
				Problem:    q.Problem,
				Links:      append([]string(nil), q.Links...),
				Done:       q.Done,
				Bookmarked: true,
				Notes:      q.Notes,
			})
		}
	}
	return out
}

// ServerProgress returns the server-computed progress row for a topic
// from the last successful FetchAll. The mirror's own percentage stays
// derived from the done flags; this is the authoritative figure the
// progress view displays.
func (s *Store) ServerProgress(topicName string) (model.TopicProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.progress[topicName]
	return row, ok
}

// LoadState distinguishes "still loading", "failed to load" (retryable)
// and "loaded": a failed fetch leaves the mirror unchanged, so an empty
// mirror with a nil error genuinely means an empty result.
func (s *Store) LoadState() (loading bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading, s.loadErr
}

// FetchBookmarks passes through the server's flat bookmarked listing.
func (s *Store) FetchBookmarks(ctx context.Context) ([]model.BookmarkedQuestion, error) {
	return s.client.Bookmarked(ctx)
}

// EachTopicProgress passes through the server-computed per-topic rows.
func (s *Store) EachTopicProgress(ctx context.Context) ([]model.TopicProgress, error) {
	return s.client.EachTopicProgress(ctx)
}

// OverallProgress passes through the completion percentage across all
// topics.
func (s *Store) OverallProgress(ctx context.Context) (int, error) {
	return s.client.OverallProgress(ctx)
}

// Flush fires any pending debounced or throttled work immediately and
// waits for in-flight requests, bounded by ctx. CLI exit calls this so a
// tail-of-typing notes write is not dropped with the process.
func (s *Store) Flush(ctx context.Context) error {
	s.notesMu.Lock()
	pending := make([]interface{ Flush() }, 0, len(s.notes))
	for _, d := range s.notes {
		pending = append(pending, d)
	}
	s.notesMu.Unlock()
	for _, d := range pending {
		d.Flush()
	}
	s.fetchAll.Flush()
	s.fetchTopic.Flush()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close discards pending timers without running them. The mirror may be
// torn down at any time without semantic loss.
func (s *Store) Close() {
	s.fetchAll.Stop()
	s.fetchTopic.Stop()
	s.notesMu.Lock()
	for _, d := range s.notes {
		d.Stop()
	}
	s.notesMu.Unlock()
}
