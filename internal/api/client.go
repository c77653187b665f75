// Package api is the typed client for the tracker REST boundary. Every
// authenticated call checks the session guard first: with a missing or
// invalid token the request is never issued and ErrNoSession is returned,
// so all call sites resolve to the same login redirect.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/config"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/model"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
)

// Mutable question fields accepted by the PATCH endpoint.
const (
	FieldDone       = "done"
	FieldBookmarked = "bookmarked"
	FieldNotes      = "notes"
)

// ErrNoSession means no valid session exists; the caller should route to
// the login entry point.
var ErrNoSession = errors.New("api: no valid session")

// Error is a non-2xx response decoded into the server's error code.
type Error struct {
	Status int
	Code   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  session.Store
	guard   *session.Guard
	logger  *log.Logger
}

func New(cfg config.Config, tokens session.Store, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: cfg.APIBaseURL,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		tokens:  tokens,
		guard:   session.NewGuard(tokens),
		logger:  logger,
	}
}

// Login exchanges credentials for a token and stores it as the active
// session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return err
	}
	return c.tokens.Set(out.Token)
}

// Register creates an account; the returned token becomes the active
// session, matching the login flow.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out, false); err != nil {
		return err
	}
	return c.tokens.Set(out.Token)
}

// AllTopics fetches the full topic collection.
func (c *Client) AllTopics(ctx context.Context) ([]model.Topic, error) {
	var out struct {
		Topics []model.Topic `json:"topics"`
	}
	if err := c.do(ctx, http.MethodGet, "/topic/get-allTopics", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Topics, nil
}

// Topic fetches a single topic with its merged progress.
func (c *Client) Topic(ctx context.Context, name string) (*model.Topic, error) {
	var out model.Topic
	path := "/topic/get-topic/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// EachTopicProgress fetches the server-computed per-topic progress rows.
func (c *Client) EachTopicProgress(ctx context.Context) ([]model.TopicProgress, error) {
	var out struct {
		Progress []model.TopicProgress `json:"progress"`
	}
	if err := c.do(ctx, http.MethodGet, "/topic/each-topic/progress", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Progress, nil
}

// OverallProgress fetches the completion percentage across all topics.
func (c *Client) OverallProgress(ctx context.Context) (int, error) {
	var out struct {
		TotalPercent int `json:"totalPercent"`
	}
	if err := c.do(ctx, http.MethodGet, "/topic/all-topics/progress", nil, &out, true); err != nil {
		return 0, err
	}
	return out.TotalPercent, nil
}

// Bookmarked fetches the flat list of bookmarked questions annotated with
// topic identity.
func (c *Client) Bookmarked(ctx context.Context) ([]model.BookmarkedQuestion, error) {
	var out []model.BookmarkedQuestion
	if err := c.do(ctx, http.MethodGet, "/topic/bookmarked", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateQuestion persists one field of one question and returns the
// canonical post-write topic.
func (c *Client) UpdateQuestion(ctx context.Context, topicID, questionID, field string, value any) (*model.Topic, error) {
	var out struct {
		Topic *model.Topic `json:"topic"`
	}
	path := "/topic/" + url.PathEscape(topicID) + "/questions/" + url.PathEscape(questionID)
	body := map[string]any{"field": field, "value": value}
	if err := c.do(ctx, http.MethodPatch, path, body, &out, true); err != nil {
		return nil, err
	}
	if out.Topic == nil {
		return nil, &Error{Status: http.StatusOK, Code: "missing_topic"}
	}
	return out.Topic, nil
}

// UserProgress is one row of the admin dashboard listing.
type UserProgress struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	TotalPercent int    `json:"totalPercent"`
}

// AllUsersProgress fetches every user's overall progress (admin only).
func (c *Client) AllUsersProgress(ctx context.Context) ([]UserProgress, error) {
	var out struct {
		Users []UserProgress `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/allUsersProgress", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// UserDetail fetches a single user's per-topic progress (admin only).
func (c *Client) UserDetail(ctx context.Context, userID string) ([]model.TopicProgress, error) {
	var out struct {
		Progress []model.TopicProgress `json:"progress"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/user/"+url.PathEscape(userID), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Progress, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var token string
	if authed {
		// The guard evicts expired or undecodable tokens as a side
		// effect, so a failed check leaves a clean no-session state.
		if !c.guard.Valid() {
			return ErrNoSession
		}
		token = c.tokens.Token()
	}

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Code: "server_error"}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Code = payload.Error
		}
		c.logger.Printf("api: %s %s -> %d %s", method, path, apiErr.Status, apiErr.Code)
		if resp.StatusCode == http.StatusUnauthorized && authed {
			// A rejected token is as dead as an expired one.
			_ = c.tokens.Clear()
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
