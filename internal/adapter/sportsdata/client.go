package sportsdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const apiKeyHeader = "Ocp-Apim-Subscription-Key"

// statusError 非 2xx 响应
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.url)
}

// retryable 5xx、429 与网络错误可重试，其余 4xx 不重试
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// retryPolicy 指数退避 + 抖动，attempts 为总尝试次数
type retryPolicy struct {
	attempts int
	base     time.Duration
	factor   float64
	jitter   float64
}

func newRetryPolicy(cfg *config.GatewayConfig) retryPolicy {
	p := retryPolicy{attempts: cfg.RetryCount, base: cfg.RetryBaseDelay, factor: cfg.RetryFactor, jitter: cfg.RetryJitter}
	if p.attempts <= 0 {
		p.attempts = 3
	}
	if p.base <= 0 {
		p.base = 250 * time.Millisecond
	}
	if p.factor < 1 {
		p.factor = 2
	}
	if p.jitter < 0 || p.jitter >= 1 {
		p.jitter = 0.2
	}
	return p
}

// backOff 每次请求新建一份退避状态（ExponentialBackOff 非并发安全）
func (p retryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.Multiplier = p.factor
	b.RandomizationFactor = p.jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.attempts-1))
}

// client 带重试与响应缓存的 REST 客户端
type client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
	policy  retryPolicy
	cache   *expirable.LRU[string, []byte]
	logger  *logrus.Logger

	// newTimer 为 nil 时使用真实计时器，测试中替换
	newTimer func() backoff.Timer
}

func newClient(cfg *config.GatewayConfig, httpClient *http.Client, logger *logrus.Logger) (*client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway.base_url非法: %q", cfg.BaseURL)
	}
	size, ttl := cfg.CacheSize, cfg.CacheTTL
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &client{
		http:    httpClient,
		baseURL: base,
		apiKey:  cfg.APIKey,
		policy:  newRetryPolicy(cfg),
		cache:   expirable.NewLRU[string, []byte](size, nil, ttl),
		logger:  logger,
	}, nil
}

// resolve 拼接请求地址；密钥走请求头，因此地址本身即缓存 key
func (c *client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

// get 读缓存 → 按 policy 重试请求，成功的响应体写入缓存
func (c *client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.resolve(path, query)
	if body, ok := c.cache.Get(target); ok {
		return body, nil
	}

	var body []byte
	op := func() error {
		var err error
		body, err = c.fetch(ctx, target)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url":  target,
			"wait": wait,
		}).Debug("网关请求失败，准备重试")
	}
	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}
	if err := backoff.RetryNotifyWithTimer(op, backoff.WithContext(c.policy.backOff(), ctx), notify, timer); err != nil {
		return nil, fmt.Errorf("请求%s失败: %w", target, err)
	}
	c.cache.Add(target, body)
	return body, nil
}

func (c *client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode, url: target}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return body, nil
}

// leaguePath SportsData 路径中的联赛段
func leaguePath(league model.League) (string, error) {
	switch league {
	case model.LeagueNFL:
		return "/nfl", nil
	case model.LeagueNBA:
		return "/nba", nil
	case model.LeagueMLB:
		return "/mlb", nil
	case model.LeagueNHL:
		return "/nhl", nil
	default:
		return "", fmt.Errorf("不支持的联赛: %q", league)
	}
}

// seasonFor SportsData 的赛季编号：跨年联赛以结束年份计（NBA/NHL），NFL 以开始年份计
func seasonFor(league model.League, t time.Time) int {
	t = t.In(model.CanonicalLocation())
	y, m := t.Year(), t.Month()
	switch league {
	case model.LeagueNFL:
		if m < time.August {
			return y - 1
		}
		return y
	case model.LeagueNBA, model.LeagueNHL:
		if m >= time.October {
			return y + 1
		}
		return y
	case model.LeagueMLB:
		return y
	default:
		return y
	}
}
