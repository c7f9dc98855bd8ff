package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igress/internal/common"
	"igress/internal/platform/logger"
	"igress/internal/platform/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxBatchSize is the largest batch the judge accepts in one call.
const MaxBatchSize = 20

var (
	ErrNoItems  = fmt.Errorf("judge: no submissions to send: %w", common.ErrValidation)
	ErrNoTokens = fmt.Errorf("judge: no tokens to fetch: %w", common.ErrValidation)
)

type Options struct {
	BaseURL           string
	RapidAPIKey       string
	RapidAPIHost      string
	AuthUser          string
	AuthToken         string
	Timeout           time.Duration
	MaxRetries        int
	RetryBase         time.Duration
	BatchSize         int
	RequestsPerSecond int
}

// StatusError is a non-2xx answer from the judge.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge %s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.retryable():
		return common.ErrServiceUnavailable
	case e.Code == http.StatusBadRequest || e.Code == http.StatusUnprocessableEntity:
		return common.ErrBadRequest
	}
	return nil
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
}

// NewClient builds a judge client. A nil httpClient gets one with opts.Timeout.
func NewClient(opts Options, httpClient *http.Client) *Client {
	if opts.BatchSize <= 0 || opts.BatchSize > MaxBatchSize {
		opts.BatchSize = MaxBatchSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 250 * time.Millisecond
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		http:    httpClient,
		opts:    opts,
		limiter: rate.NewLimiter(limit, max(opts.RequestsPerSecond, 1)),
	}
}

// SubmitBatch queues every item and returns the tokens in item order.
func (c *Client) SubmitBatch(ctx context.Context, items []Item) ([]string, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	tokens := make([]string, 0, len(items))
	for _, chunk := range partition(items, c.opts.BatchSize) {
		payload := submitRequest{Submissions: make([]submissionPayload, len(chunk))}
		for i, it := range chunk {
			payload.Submissions[i] = submissionPayload{
				LanguageID:     it.LanguageID,
				SourceCode:     encode(it.SourceCode),
				Stdin:          encode(it.Stdin),
				ExpectedOutput: encode(it.ExpectedOutput),
			}
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("judge submit: encode: %w", err)
		}

		var entries []tokenEntry
		rc := c.newRequestConfig(http.MethodPost, "/submissions/batch", url.Values{"base64_encoded": {"true"}}, body)
		if err := c.do(ctx, "submit", rc, &entries); err != nil {
			return nil, err
		}
		if len(entries) != len(chunk) {
			return nil, fmt.Errorf("judge submit: sent %d submissions, got %d tokens: %w", len(chunk), len(entries), common.ErrServiceUnavailable)
		}
		for i, e := range entries {
			if e.Token == "" {
				return nil, fmt.Errorf("judge submit: submission %d rejected: %w", len(tokens)+i, common.ErrBadRequest)
			}
			tokens = append(tokens, e.Token)
		}
	}
	return tokens, nil
}

// FetchBatch returns one result per token, in token order.
func (c *Client) FetchBatch(ctx context.Context, tokens []string, fields []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}
	fieldList := strings.Join(withToken(fields), ",")

	results := make([]Result, 0, len(tokens))
	for _, chunk := range partition(tokens, c.opts.BatchSize) {
		query := url.Values{
			"tokens":         {strings.Join(chunk, ",")},
			"base64_encoded": {"true"},
			"fields":         {fieldList},
		}
		var resp fetchResponse
		rc := c.newRequestConfig(http.MethodGet, "/submissions/batch", query, nil)
		if err := c.do(ctx, "fetch", rc, &resp); err != nil {
			return nil, err
		}

		byToken := make(map[string]*wireResult, len(resp.Submissions))
		for _, wr := range resp.Submissions {
			if wr != nil {
				byToken[wr.Token] = wr
			}
		}
		for _, tok := range chunk {
			wr, ok := byToken[tok]
			if !ok {
				return nil, fmt.Errorf("judge fetch: no result for token %s: %w", tok, common.ErrNotFound)
			}
			res, err := decodeResult(tok, wr)
			if err != nil {
				return nil, err
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// requestConfig is built fresh per call and never shared between requests.
type requestConfig struct {
	method  string
	url     string
	headers http.Header
	body    []byte
}

func (c *Client) newRequestConfig(method, path string, query url.Values, body []byte) requestConfig {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if body != nil {
		h.Set("Content-Type", "application/json")
	}
	if c.opts.RapidAPIKey != "" {
		h.Set("X-RapidAPI-Key", c.opts.RapidAPIKey)
		h.Set("X-RapidAPI-Host", c.opts.RapidAPIHost)
	}
	if c.opts.AuthToken != "" {
		h.Set("X-Auth-Token", c.opts.AuthToken)
	}
	if c.opts.AuthUser != "" {
		h.Set("X-Auth-User", c.opts.AuthUser)
	}
	return requestConfig{
		method:  method,
		url:     c.opts.BaseURL + path + "?" + query.Encode(),
		headers: h,
		body:    body,
	}
}

func (c *Client) do(ctx context.Context, op string, rc requestConfig, out interface{}) error {
	start := time.Now()
	defer func() {
		metrics.JudgeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.RetryBase << (attempt - 1)
			logger.Log.Warn("retrying judge request",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))
			if err := sleep(ctx, backoff); err != nil {
				return fmt.Errorf("judge %s: %w", op, err)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("judge %s: %w", op, err)
		}

		err := c.attempt(ctx, op, rc, out)
		if err == nil {
			metrics.JudgeRequests.WithLabelValues(op, "ok").Inc()
			return nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			metrics.JudgeRequests.WithLabelValues(op, "rejected").Inc()
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("judge %s: %w", op, ctx.Err())
		}
		metrics.JudgeRequests.WithLabelValues(op, "retry").Inc()
	}
	metrics.JudgeRequests.WithLabelValues(op, "failed").Inc()

	var se *StatusError
	if errors.As(lastErr, &se) {
		return lastErr
	}
	return fmt.Errorf("judge %s: giving up after %d attempts: %v: %w", op, c.opts.MaxRetries+1, lastErr, common.ErrServiceUnavailable)
}

func (c *Client) attempt(ctx context.Context, op string, rc requestConfig, out interface{}) error {
	var body io.Reader
	if rc.body != nil {
		body = bytes.NewReader(rc.body)
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, rc.url, body)
	if err != nil {
		return fmt.Errorf("judge %s: build request: %w", op, err)
	}
	req.Header = rc.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("judge %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("judge %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &StatusError{Op: op, Code: http.StatusBadGateway, Body: "malformed response: " + err.Error()}
	}
	return nil
}

func decodeResult(token string, wr *wireResult) (Result, error) {
	res := Result{Token: token}
	if wr.Status != nil {
		res.Status = *wr.Status
	}
	if wr.Time != nil {
		res.Time = *wr.Time
	}
	if wr.Memory != nil {
		res.Memory = *wr.Memory
	}
	if wr.LanguageID != nil {
		res.LanguageID = *wr.LanguageID
	}

	for _, f := range []struct {
		src *string
		dst *string
	}{
		{wr.Stdout, &res.Stdout},
		{wr.Stderr, &res.Stderr},
		{wr.CompileOutput, &res.CompileOutput},
		{wr.Message, &res.Message},
		{wr.SourceCode, &res.SourceCode},
	} {
		if f.src == nil {
			continue
		}
		decoded, err := decode(*f.src)
		if err != nil {
			return Result{}, fmt.Errorf("judge fetch: token %s: %w", token, err)
		}
		*f.dst = decoded
	}
	return res, nil
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// decode accepts the line wrapped base64 the judge emits.
func decode(s string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return string(b), nil
}

func partition[T any](xs []T, size int) [][]T {
	chunks := make([][]T, 0, (len(xs)+size-1)/size)
	for start := 0; start < len(xs); start += size {
		end := min(start+size, len(xs))
		chunks = append(chunks, xs[start:end])
	}
	return chunks
}

func withToken(fields []string) []string {
	for _, f := range fields {
		if f == "token" {
			return fields
		}
	}
	return append([]string{"token"}, fields...)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
