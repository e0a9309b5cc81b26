// Package datasource fetches market data for MarketPulse: Yahoo Finance
// quotes and price history through an optional CORS proxy chain, RSS news,
// and a static symbol directory for ticker lookup.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// --- Sentinel errors ---

// ErrNotSupported is returned when a data source does not support a method.
var ErrNotSupported = errors.New("operation not supported by this data source")

// ErrSymbolNotFound is returned when the provider knows nothing about a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// ErrNoData is returned when a response parsed but carried no usable points.
var ErrNoData = errors.New("no data returned")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = errors.New("rate limited by data source")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// FetchError reports a failed fetch operation for a set of symbols.
type FetchError struct {
	Op      string
	Symbols []string
	Err     error
}

func (e *FetchError) Error() string {
	if len(e.Symbols) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, strings.Join(e.Symbols, ","), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps how much of a response body is read.
const maxBody = 8 << 20

// proxyClient performs GETs directly or through an ordered list of CORS
// proxy prefixes. Each prefix is tried in turn until one succeeds.
type proxyClient struct {
	http    *http.Client
	proxies []string
	source  string
}

func newProxyClient(client *http.Client, timeout time.Duration, proxies []string, source string) *proxyClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &proxyClient{http: client, proxies: proxies, source: source}
}

// get fetches target and returns the (unwrapped) body plus the endpoint
// that served it.
func (p *proxyClient) get(ctx context.Context, target string) ([]byte, models.Source, error) {
	if len(p.proxies) == 0 {
		body, err := doGet(ctx, p.http, target)
		return body, models.Source{Name: p.source, URL: target}, err
	}

	var errs []error
	for _, prefix := range p.proxies {
		proxied := prefix + url.QueryEscape(target)
		body, err := doGet(ctx, p.http, proxied)
		if err != nil {
			errs = append(errs, fmt.Errorf("proxy %s: %w", proxyHost(prefix), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return unwrapProxyBody(body), models.Source{
			Name: p.source + " via " + proxyHost(prefix),
			URL:  proxied,
		}, nil
	}
	return nil, models.Source{}, errors.Join(errs...)
}

// doGet performs a GET request and returns the response body.
func doGet(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// unwrapProxyBody returns the upstream payload of proxies that wrap it as
// {"contents": "..."}; other bodies are returned unchanged.
func unwrapProxyBody(body []byte) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	contents := gjson.GetBytes(body, "contents")
	if contents.Type != gjson.String {
		return body
	}
	return []byte(contents.Str)
}

func proxyHost(prefix string) string {
	u, err := url.Parse(prefix)
	if err != nil || u.Host == "" {
		return prefix
	}
	return u.Host
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
