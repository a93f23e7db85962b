// Package httpx contiene el GET JSON con rate limiting y retries que comparten los adapters HTTP.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries    = 3
	defaultBaseRetryWait = 500 * time.Millisecond
)

// Client es un HTTP client JSON con un limiter por host.
type Client struct {
	http          *http.Client
	limiter       *rate.Limiter
	name          string // host label for logs
	maxRetries    int
	baseRetryWait time.Duration
}

// Option configura un Client.
type Option func(*Client)

// WithRetryWait cambia la espera base del backoff (los tests usan valores pequeños).
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.baseRetryWait = d }
}

// WithMaxRetries cambia el número de reintentos.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New crea un Client limitado a ratePerSec peticiones por segundo.
func New(name string, ratePerSec float64, burst int, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:          &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(rate.Limit(ratePerSec), burst),
		name:          name,
		maxRetries:    defaultMaxRetries,
		baseRetryWait: defaultBaseRetryWait,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetJSON hace un GET con rate limiting y retries y decodifica el body en out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// StatusError es un 4xx devuelto sin reintentar.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Body)
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan; 4xx se devuelven sin reintentar.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil || attempt == c.maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "host", c.name, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, c.maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", c.maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
