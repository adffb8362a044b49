// Package client talks to the AlphaExam HTTP API on behalf of an exam taker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/google/uuid"
)

// ErrSubmissionFailed covers every way a submission can fail: transport,
// non-2xx status, an unreadable body or a reply without an attempt id. There
// is no partial success.
var ErrSubmissionFailed = errors.New("submission failed")

// APIError is a non-2xx reply carrying the server's error body, when any.
type APIError struct {
	Status  int
	Code    response.ErrCode
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// Client is an authenticated API client. The zero value is not usable; call New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for baseURL that sends token as a bearer credential.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient swaps the underlying transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// ListExams returns the public catalogue.
func (c *Client) ListExams(ctx context.Context) ([]model.Exam, error) {
	var exams []model.Exam
	if err := c.do(ctx, http.MethodGet, "/api/exams?per_page=100", nil, &exams); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Start begins (or resumes) an attempt on examID.
func (c *Client) Start(ctx context.Context, examID string) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	if err := c.do(ctx, http.MethodPost, "/api/exams/"+url.PathEscape(examID)+"/start", nil, &attempt); err != nil {
		return nil, fmt.Errorf("start exam: %w", err)
	}
	return &attempt, nil
}

// FetchQuestions loads the paper for the caller's active attempt.
func (c *Client) FetchQuestions(ctx context.Context, examID string) (*model.ExamPaper, error) {
	var paper model.ExamPaper
	if err := c.do(ctx, http.MethodGet, "/api/exams/"+url.PathEscape(examID)+"/questions", nil, &paper); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	return &paper, nil
}

// Submit sends the final answer set. Any failure wraps ErrSubmissionFailed.
func (c *Client) Submit(ctx context.Context, examID string, req model.SubmitRequest) (*model.SubmitResponse, error) {
	if req.Answers == nil {
		req.Answers = map[string]model.Option{}
	}
	var out model.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/exams/"+url.PathEscape(examID)+"/submit", req, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	if out.AttemptID == uuid.Nil {
		return nil, fmt.Errorf("%w: response carries no attempt id", ErrSubmissionFailed)
	}
	return &out, nil
}

// SaveAnswer autosaves one selection.
func (c *Client) SaveAnswer(ctx context.Context, attemptID string, req model.SaveAnswerRequest) error {
	if err := c.do(ctx, http.MethodPut, "/api/exam-attempts/"+url.PathEscape(attemptID)+"/answers", req, nil); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// State returns the autosaved answers and server time left.
func (c *Client) State(ctx context.Context, attemptID string) (*model.AttemptState, error) {
	var st model.AttemptState
	if err := c.do(ctx, http.MethodGet, "/api/exam-attempts/"+url.PathEscape(attemptID)+"/state", nil, &st); err != nil {
		return nil, fmt.Errorf("attempt state: %w", err)
	}
	return &st, nil
}

// FetchResult loads a graded attempt for analysis.
func (c *Client) FetchResult(ctx context.Context, attemptID string) (*model.AttemptDetail, error) {
	var detail model.AttemptDetail
	if err := c.do(ctx, http.MethodGet, "/api/exam-attempts/"+url.PathEscape(attemptID), nil, &detail); err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	return &detail, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env response.Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
