package scaleapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

const (
	DefaultBaseURL  = "https://api.scale.com/v1"
	DefaultPageSize = 100
	userAgent       = "annotaudit/0.1.0"
	maxErrorBody    = 4096
)

var (
	ErrMissingAPIKey = errors.New("api key is not set")
	ErrUnauthorized  = errors.New("api key rejected")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GET %s: http %d: %s", e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

type Options struct {
	BaseURL           string
	APIKey            string
	HTTPClient        *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            logrus.FieldLogger
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(limit, 1),
		log:     opts.Logger,
	}
}

type TaskQuery struct {
	Project string
	Status  string
	// Limit is the page size sent to the API.
	Limit int
	// MaxPages stops pagination early; zero means follow every page.
	MaxPages int
}

// TaskPage mirrors one page of the tasks endpoint.
type TaskPage struct {
	Docs      []model.Task `json:"docs"`
	HasMore   bool         `json:"has_more"`
	NextToken string       `json:"next_token"`
	Total     int          `json:"total"`
}

// ListTasks fetches every page of tasks for the query.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}

	tasks := make([]model.Task, 0)
	token := ""
	for page := 1; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		p, err := c.fetchPage(ctx, q, token)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, p.Docs...)
		c.log.WithFields(logrus.Fields{
			"page":  page,
			"docs":  len(p.Docs),
			"total": len(tasks),
		}).Debug("fetched task page")

		if !p.HasMore || p.NextToken == "" {
			break
		}
		if q.MaxPages > 0 && page >= q.MaxPages {
			c.log.WithField("pages", page).Warn("stopping pagination at page limit")
			break
		}
		token = p.NextToken
	}
	return tasks, nil
}

func (c *Client) fetchPage(ctx context.Context, q TaskQuery, token string) (TaskPage, error) {
	params := url.Values{}
	if q.Project != "" {
		params.Set("project", q.Project)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	if token != "" {
		params.Set("next_token", token)
	}
	reqURL := c.baseURL + "/tasks?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return TaskPage{}, err
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return TaskPage{}, fmt.Errorf("fetch tasks: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return TaskPage{}, &APIError{StatusCode: resp.StatusCode, URL: c.baseURL + "/tasks", Body: string(body)}
	}

	var page TaskPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return TaskPage{}, fmt.Errorf("decode tasks: %w", err)
	}
	return page, nil
}

// LoadTasks reads a saved tasks document ({"docs": [...]}) from disk.
func LoadTasks(path string) ([]model.Task, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeTasks(buf)
}

func DecodeTasks(buf []byte) ([]model.Task, error) {
	trimmed := bytes.TrimSpace(buf)
	// A bare array of tasks is accepted as well.
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tasks []model.Task
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
		return tasks, nil
	}
	var page TaskPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return page.Docs, nil
}
