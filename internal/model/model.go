package model

import "math"

// Question is owned by exactly one Topic; it is never addressed by id
// alone across topics.
type Question struct {
	ID         string   `json:"id"`
	Problem    string   `json:"problem"`
	Links      []string `json:"links,omitempty"`
	Done       bool     `json:"done"`
	Bookmarked bool     `json:"bookmarked"`
	Notes      string   `json:"notes,omitempty"`
}

// Topic holds an ordered question list. Order is meaningful: display and
// indexing both depend on it.
type Topic struct {
	ID        string     `json:"id"`
	Name      string     `json:"topicName"`
	Questions []Question `json:"questions"`
}

// Completed counts questions marked done.
func (t *Topic) Completed() int {
	n := 0
	for i := range t.Questions {
		if t.Questions[i].Done {
			n++
		}
	}
	return n
}

// PercentCompleted is always derived from the current done flags, never
// stored where it could drift from its source questions.
func (t *Topic) PercentCompleted() int {
	total := len(t.Questions)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(t.Completed()) / float64(total)))
}

// Clone returns a deep copy so callers can read without aliasing the
// store's mirror.
func (t *Topic) Clone() *Topic {
	if t == nil {
		return nil
	}
	cp := &Topic{ID: t.ID, Name: t.Name}
	if t.Questions != nil {
		cp.Questions = make([]Question, len(t.Questions))
		copy(cp.Questions, t.Questions)
		for i := range cp.Questions {
			if links := t.Questions[i].Links; links != nil {
				cp.Questions[i].Links = append([]string(nil), links...)
			}
		}
	}
	return cp
}

// Question returns the question with the given id, or nil.
func (t *Topic) Question(id string) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}

// TopicProgress is the server-computed per-topic progress row.
type TopicProgress struct {
	TopicName        string `json:"topicName"`
	Completed        int    `json:"completed"`
	PercentCompleted int    `json:"percentCompleted"`
	TotalQuestions   int    `json:"totalQuestions"`
}

// BookmarkedQuestion annotates a question with its topic identity for the
// flat bookmarks listing.
type BookmarkedQuestion struct {
	TopicID    string   `json:"topicId"`
	TopicName  string   `json:"topicName"`
	QuestionID string   `json:"questionId"`
	Problem    string   `json:"problem"`
	Links      []string `json:"links,omitempty"`
	Done       bool     `json:"done"`
	Bookmarked bool     `json:"bookmarked"`
	Notes      string   `json:"notes,omitempty"`
}
