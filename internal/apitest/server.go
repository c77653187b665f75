// Package apitest is an in-memory implementation of the tracker REST
// boundary, used by the client tests. It mirrors the server contract
// (bearer auth, canonical PATCH responses, server-computed progress) with
// no persistence: state lives for the lifetime of one test.
package apitest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/model"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
)

const (
	secret = "apitest-secret"
	issuer = "js-tracker-apitest"
)

type Server struct {
	mu     sync.Mutex
	topics []*model.Topic
	users  []UserRow

	failPatch bool
	failFetch bool

	allTopicsCalls int
	progressCalls  int
	topicCalls     int
	patchCalls     int
}

// UserRow backs the admin listing.
type UserRow struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	TotalPercent int    `json:"totalPercent"`
}

func New() *Server {
	return &Server{}
}

// Seed replaces the fixture topics.
func (s *Server) Seed(topics []model.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = make([]*model.Topic, len(topics))
	for i := range topics {
		s.topics[i] = topics[i].Clone()
	}
}

// SeedUsers replaces the admin fixture rows.
func (s *Server) SeedUsers(users []UserRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append([]UserRow(nil), users...)
}

// FailPatch makes every PATCH return 500 until cleared.
func (s *Server) FailPatch(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPatch = fail
}

// FailFetch makes every topic GET return 500 until cleared.
func (s *Server) FailFetch(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFetch = fail
}

// Calls reports how many requests each endpoint group served.
func (s *Server) Calls() (allTopics, progress, topic, patch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allTopicsCalls, s.progressCalls, s.topicCalls, s.patchCalls
}

// Token mints a signed access token for the given role. A negative ttl
// produces an already-expired token.
func Token(role string, ttl time.Duration) string {
	now := time.Now().UTC()
	claims := session.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/topic/get-allTopics", s.handleAllTopics)
		r.Get("/topic/get-topic/{topicName}", s.handleGetTopic)
		r.Get("/topic/each-topic/progress", s.handleEachProgress)
		r.Get("/topic/all-topics/progress", s.handleOverallProgress)
		r.Get("/topic/bookmarked", s.handleBookmarked)
		r.Patch("/topic/{topicId}/questions/{questionId}", s.handlePatch)
		r.With(s.requireAdmin).Get("/admin/allUsersProgress", s.handleAllUsers)
		r.With(s.requireAdmin).Get("/admin/user/{userId}", s.handleUserDetail)
	})

	return r
}

// Auth

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims := &session.Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := contextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != session.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": Token(session.RoleUser, time.Hour)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": Token(session.RoleUser, time.Hour)})
}

func (s *Server) handleAllTopics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.allTopicsCalls++
	fail := s.failFetch
	topics := s.snapshotLocked()
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "topicName")
	s.mu.Lock()
	s.topicCalls++
	fail := s.failFetch
	var found *model.Topic
	for _, t := range s.topics {
		if t.Name == name {
			found = t.Clone()
			break
		}
	}
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "topic_not_found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleEachProgress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.progressCalls++
	fail := s.failFetch
	rows := make([]model.TopicProgress, 0, len(s.topics))
	for _, t := range s.topics {
		rows = append(rows, model.TopicProgress{
			TopicName:        t.Name,
			Completed:        t.Completed(),
			PercentCompleted: t.PercentCompleted(),
			TotalQuestions:   len(t.Questions),
		})
	}
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": rows})
}

func (s *Server) handleOverallProgress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total, done := 0, 0
	for _, t := range s.topics {
		total += len(t.Questions)
		done += t.Completed()
	}
	s.mu.Unlock()
	percent := 0
	if total > 0 {
		percent = int(float64(done)/float64(total)*100 + 0.5)
	}
	writeJSON(w, http.StatusOK, map[string]int{"totalPercent": percent})
}

func (s *Server) handleBookmarked(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]model.BookmarkedQuestion, 0)
	for _, t := range s.topics {
		for i := range t.Questions {
			q := t.Questions[i]
			if !q.Bookmarked {
				continue
			}
			out = append(out, model.BookmarkedQuestion{
				TopicID:    t.ID,
				TopicName:  t.Name,
				QuestionID: q.ID,
				Problem:    q.Problem,
				Links:      q.Links,
				Done:       q.Done,
				Bookmarked: true,
				Notes:      q.Notes,
			})
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicId")
	questionID := chi.URLParam(r, "questionId")

	var req struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	s.mu.Lock()
	s.patchCalls++
	if s.failPatch {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	var topic *model.Topic
	for _, t := range s.topics {
		if t.ID == topicID {
			topic = t
			break
		}
	}
	if topic == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "topic_not_found")
		return
	}
	q := topic.Question(questionID)
	if q == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "question_not_found")
		return
	}
	switch req.Field {
	case "done":
		v, ok := req.Value.(bool)
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "invalid_value")
			return
		}
		q.Done = v
	case "bookmarked":
		v, ok := req.Value.(bool)
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "invalid_value")
			return
		}
		q.Bookmarked = v
	case "notes":
		v, ok := req.Value.(string)
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "invalid_value")
			return
		}
		q.Notes = v
	default:
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "invalid_field")
		return
	}
	out := topic.Clone()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"topic": out})
}

func (s *Server) handleAllUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := append([]UserRow(nil), s.users...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]model.TopicProgress, 0, len(s.topics))
	for _, t := range s.topics {
		rows = append(rows, model.TopicProgress{
			TopicName:        t.Name,
			Completed:        t.Completed(),
			PercentCompleted: t.PercentCompleted(),
			TotalQuestions:   len(t.Questions),
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"progress": rows})
}

func (s *Server) snapshotLocked() []*model.Topic {
	out := make([]*model.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out
}
