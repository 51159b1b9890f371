package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/metrics"
	"redpacket.com/pkg/ratelimit"
)

const (
	breakerName = "x-api"

	opUserByName = "user_by_username"
	opFollowing  = "following"

	MaxPageSize = 1000
)

var ErrMissingUserID = errors.New("x api: missing user id")

// APIError 非 2xx 响应，调用方一律当作上游故障，不能解读成"没关注"
type APIError struct {
	Op         string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api %s: status %d", e.Op, e.StatusCode)
}

type Options struct {
	BaseURL    string
	PageSize   int
	Timeout    time.Duration
	HTTPClient *http.Client
	Breakers   *ratelimit.Manager
}

// Client X API v2 的最小封装
type Client struct {
	baseURL  string
	pageSize int
	http     *http.Client
	breakers *ratelimit.Manager
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.twitter.com"
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Breakers == nil {
		opts.Breakers = ratelimit.NewManager(ratelimit.Rule{
			TripConsecutiveFailures: 5,
			Timeout:                 30 * time.Second,
		}, nil, BreakerClassifier)
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
		http:     opts.HTTPClient,
		breakers: opts.Breakers,
	}
}

// BreakerClassifier 4xx (429 除外) 是请求本身的问题，不算上游故障
func BreakerClassifier(err error) bool {
	if ratelimit.DefaultClassifier(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return errors.Is(err, ErrMissingUserID)
}

type userResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// ResolveUserID GET /2/users/by/username/{handle}
func (c *Client) ResolveUserID(ctx context.Context, token, handle string) (string, error) {
	endpoint := c.baseURL + "/2/users/by/username/" + url.PathEscape(handle)
	var resp userResponse
	if err := c.get(ctx, opUserByName, token, endpoint, &resp); err != nil {
		return "", err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return "", ErrMissingUserID
	}
	return resp.Data.ID, nil
}

// FollowingPage 一页关注列表
type FollowingPage struct {
	IDs       []string
	NextToken string
}

type followingResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// FollowingPage GET /2/users/{id}/following
func (c *Client) FollowingPage(ctx context.Context, token, userID, paginationToken string) (*FollowingPage, error) {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(c.pageSize))
	if paginationToken != "" {
		q.Set("pagination_token", paginationToken)
	}
	endpoint := c.baseURL + "/2/users/" + url.PathEscape(userID) + "/following?" + q.Encode()

	var resp followingResponse
	if err := c.get(ctx, opFollowing, token, endpoint, &resp); err != nil {
		return nil, err
	}
	page := &FollowingPage{
		IDs:       make([]string, 0, len(resp.Data)),
		NextToken: resp.Meta.NextToken,
	}
	for _, u := range resp.Data {
		page.IDs = append(page.IDs, u.ID)
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, op, token, endpoint string, out any) error {
	_, err := ratelimit.Execute(c.breakers, breakerName, func() (struct{}, error) {
		return struct{}{}, c.doGet(ctx, op, token, endpoint, out)
	})
	if err != nil && ratelimit.IsOpen(err) {
		metrics.SocialAPIRequestsTotal.WithLabelValues(op, "breaker_open").Inc()
		logger.Warn(ctx, "x api breaker open", zap.String("op", op))
	}
	return err
}

func (c *Client) doGet(ctx context.Context, op, token, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SocialAPIRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return fmt.Errorf("x api %s: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.SocialAPIRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("x api %s: decode: %w", op, err)
	}
	return nil
}
