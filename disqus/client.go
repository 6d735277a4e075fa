package disqus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"disqus-bot/models"
	"disqus-bot/utils"
)

const (
	DefaultAPIBase = "https://disqus.com/api/3.0"

	getTimeout  = 15 * time.Second
	postTimeout = 20 * time.Second
)

// Client talks to the forum REST API. Reads go through a retrying client;
// writes are sent once and paced by a rate limiter.
type Client struct {
	baseURL     string
	forum       string
	publicKey   string
	secretKey   string
	accessToken string

	getClient  *http.Client
	postClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces both the read and the write HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.getClient = c
		cl.postClient = c
	}
}

// WithLimiter replaces the write rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(cl *Client) {
		cl.limiter = l
	}
}

// NewClient creates an API client for the configured forum.
func NewClient(cfg *models.Config, logger *zap.Logger, opts ...Option) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	logger = logger.Named("disqus")

	c := &Client{
		baseURL:     base,
		forum:       cfg.Forum,
		publicKey:   cfg.PublicKey,
		secretKey:   cfg.SecretKey,
		accessToken: cfg.AccessToken,
		getClient:   utils.NewRobustHTTPClient(logger, getTimeout),
		postClient:  &http.Client{Timeout: postTimeout},
		limiter:     rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Forum returns the forum short name the client is bound to.
func (c *Client) Forum() string { return c.forum }

type envelope struct {
	Code     int             `json:"code"`
	Response json.RawMessage `json:"response"`
}

// WhoAmI returns the account the access token belongs to.
func (c *Client) WhoAmI(ctx context.Context) (*models.Author, error) {
	var me models.Author
	if err := c.get(ctx, "/users/details.json", url.Values{}, &me); err != nil {
		return nil, fmt.Errorf("failed to fetch bot identity: %w", err)
	}
	return &me, nil
}

// ListRecentPosts returns the newest posts of the forum, newest first.
func (c *Client) ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	params := url.Values{
		"forum":   {c.forum},
		"limit":   {strconv.Itoa(limit)},
		"order":   {"desc"},
		"include": {"approved", "unapproved"},
		"related": {"thread"},
	}
	var posts []models.Post
	if err := c.get(ctx, "/forums/listPosts.json", params, &posts); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// ListRecentThreads returns the newest threads of the forum, newest first.
func (c *Client) ListRecentThreads(ctx context.Context, limit int) ([]models.Thread, error) {
	params := url.Values{
		"forum": {c.forum},
		"limit": {strconv.Itoa(limit)},
		"order": {"desc"},
	}
	var threads []models.Thread
	if err := c.get(ctx, "/forums/listThreads.json", params, &threads); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// ListModerators returns the forum's moderators.
func (c *Client) ListModerators(ctx context.Context) ([]models.Moderator, error) {
	var mods []models.Moderator
	if err := c.get(ctx, "/forums/listModerators.json", url.Values{"forum": {c.forum}}, &mods); err != nil {
		return nil, fmt.Errorf("failed to list moderators: %w", err)
	}
	return mods, nil
}

// PostDetails fetches a single post.
func (c *Client) PostDetails(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	if err := c.get(ctx, "/posts/details.json", url.Values{"post": {postID}}, &p); err != nil {
		return nil, fmt.Errorf("failed to fetch post %s: %w", postID, err)
	}
	return &p, nil
}

// CreatePost posts message into thread, as a reply to parentID or as a root
// post when parentID is empty. It returns the new post's id.
func (c *Client) CreatePost(ctx context.Context, threadID, parentID, message string) (string, error) {
	form := url.Values{
		"thread":  {threadID},
		"message": {message},
	}
	if parentID != "" {
		form.Set("parent", parentID)
	}
	var created models.Post
	if err := c.post(ctx, "/posts/create.json", form, &created); err != nil {
		return "", fmt.Errorf("failed to create post in thread %s: %w", threadID, err)
	}
	return created.ID.String(), nil
}

// VotePost casts vote (1 = like) on a post.
func (c *Client) VotePost(ctx context.Context, postID string, vote int) error {
	form := url.Values{
		"post": {postID},
		"vote": {strconv.Itoa(vote)},
	}
	if err := c.post(ctx, "/posts/vote.json", form, nil); err != nil {
		return fmt.Errorf("failed to vote on post %s: %w", postID, err)
	}
	return nil
}

// BanPostAuthor adds the author of postID to the forum's ban registry.
func (c *Client) BanPostAuthor(ctx context.Context, postID string, opts models.BanOptions) (*models.BanResponse, error) {
	form := url.Values{
		"post":      {postID},
		"banUser":   {flag(opts.BanUser)},
		"banEmail":  {flag(opts.BanEmail)},
		"banIp":     {flag(opts.BanIP)},
		"shadowBan": {flag(opts.ShadowBan)},
	}
	if opts.RetroactiveAction != nil {
		form.Set("retroactiveAction", strconv.Itoa(*opts.RetroactiveAction))
	}
	var resp models.BanResponse
	if err := c.post(ctx, "/forums/block/banPostAuthor.json", form, &resp); err != nil {
		return nil, fmt.Errorf("failed to ban author of post %s: %w", postID, err)
	}
	return &resp, nil
}

// RemoveBlacklist deletes a ban registry entry.
func (c *Client) RemoveBlacklist(ctx context.Context, blacklistID string) error {
	form := url.Values{
		"forum":     {c.forum},
		"blacklist": {blacklistID},
	}
	if err := c.post(ctx, "/blacklists/remove.json", form, nil); err != nil {
		return fmt.Errorf("failed to remove blacklist entry %s: %w", blacklistID, err)
	}
	return nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.publicKey)
	if c.accessToken != "" {
		params.Set("access_token", c.accessToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(c.getClient, req, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("api_key", c.publicKey)
	if c.secretKey != "" {
		form.Set("api_secret", c.secretKey)
	}
	if c.accessToken != "" {
		form.Set("access_token", c.accessToken)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(c.postClient, req, out)
}

func (c *Client) do(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := sonic.Unmarshal(body, &env)
	if resp.StatusCode >= http.StatusBadRequest || (decodeErr == nil && env.Code != 0) {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Body: truncate(string(body), 512)}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	c.logger.Debug("API call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode))

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
