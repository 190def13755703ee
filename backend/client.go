package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultAPIBase is where the site mounts the comment API
	DefaultAPIBase = "/api/comments"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client implements Backend over the comment REST API
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a logger; requests are logged at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API mounted at base, e.g.
// "https://example.com/api/comments"
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// ListComments implements Backend
func (c *Client) ListComments(ctx context.Context, articleURL string, page, perPage int, sortBy string) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort_by", NormalizeSort(sortBy))

	env, err := c.do(ctx, "list comments", http.MethodGet, c.base+escapePath(NormalizeArticleURL(articleURL))+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var wc []*wireComment
	if err := decodeData(env, &wc); err != nil {
		return nil, &NetworkError{Op: "list comments", Err: err}
	}

	result := &CommentPage{Comments: make([]*Comment, 0, len(wc))}
	for _, w := range wc {
		if w == nil {
			continue
		}
		result.Comments = append(result.Comments, w.toComment())
	}

	if env.Pagination != nil {
		result.Pagination = Pagination{
			Page:    env.Pagination.Page,
			PerPage: env.Pagination.PerPage,
			Pages:   env.Pagination.Pages,
			Total:   env.Pagination.Total,
		}
	} else {
		result.Pagination = Pagination{Page: page, PerPage: perPage, Pages: 1, Total: len(result.Comments)}
	}
	return result, nil
}

// GetStats implements Backend
func (c *Client) GetStats(ctx context.Context, articleURL string) (*Stats, error) {
	env, err := c.do(ctx, "get stats", http.MethodGet, c.base+escapePath(NormalizeArticleURL(articleURL))+"/stats", nil)
	if err != nil {
		return nil, err
	}
	var ws wireStats
	if err := decodeData(env, &ws); err != nil {
		return nil, &NetworkError{Op: "get stats", Err: err}
	}
	return ws.toStats(), nil
}

// CreateComment implements Backend
func (c *Client) CreateComment(ctx context.Context, articleURL string, nc NewComment) (*Created, error) {
	body := wireNewComment{
		Username: nc.Author,
		Email:    nc.Email,
		Content:  nc.Body,
		Rating:   nc.Rating,
	}
	env, err := c.do(ctx, "create comment", http.MethodPost, c.base+escapePath(NormalizeArticleURL(articleURL)), body)
	if err != nil {
		return nil, err
	}
	var wc wireCreated
	if err := decodeData(env, &wc); err != nil {
		c.logger.Debug("created payload not decoded", zap.String("op", "create comment"), zap.Error(err))
	}
	return &Created{ID: wc.CommentID, Status: wc.Status, Message: env.Message}, nil
}

// CreateReply implements Backend
func (c *Client) CreateReply(ctx context.Context, commentID string, nr NewReply) (*Created, error) {
	body := wireNewReply{
		Username:        nr.Author,
		Content:         nr.Body,
		ParentReplyID:   nr.ParentReplyID,
		ReplyToUsername: nr.MentionedAuthor,
	}
	env, err := c.do(ctx, "create reply", http.MethodPost, c.base+"/"+url.PathEscape(commentID)+"/reply", body)
	if err != nil {
		return nil, err
	}
	var wc wireCreated
	if err := decodeData(env, &wc); err != nil {
		c.logger.Debug("created payload not decoded", zap.String("op", "create reply"), zap.Error(err))
	}
	return &Created{ID: wc.ReplyID, Status: wc.Status, Message: env.Message}, nil
}

// LikeComment implements Backend
func (c *Client) LikeComment(ctx context.Context, commentID string) (int, error) {
	return c.like(ctx, c.base+"/"+url.PathEscape(commentID)+"/like")
}

// LikeReply implements Backend
func (c *Client) LikeReply(ctx context.Context, commentID, replyID string) (int, error) {
	return c.like(ctx, c.base+"/"+url.PathEscape(commentID)+"/reply/"+url.PathEscape(replyID)+"/like")
}

func (c *Client) like(ctx context.Context, endpoint string) (int, error) {
	env, err := c.do(ctx, "like", http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, err
	}
	var wl wireLikes
	if err := decodeData(env, &wl); err != nil {
		return 0, &NetworkError{Op: "like", Err: err}
	}
	return wl.Likes, nil
}

// do performs one round-trip and returns the decoded envelope.
// A success=false envelope becomes a *ServerError whatever the status code.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload any) (*envelope, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("comment api request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("comment api request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", requestID),
	)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.Errorf("unexpected status %d", resp.StatusCode)}
		}
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "decode envelope")}
	}
	if !env.Success {
		return nil, &ServerError{Status: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	return &env, nil
}

func decodeData(env *envelope, dest any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, dest)
}

// escapePath escapes each segment of an article path but keeps the slashes
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
