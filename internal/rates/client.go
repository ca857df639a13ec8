package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/circuitbreaker"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/httpx"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
)

// Snapshot is one base currency's rate table as served to API clients.
type Snapshot struct {
	Base       string             `json:"base"`
	Rates      map[string]float64 `json:"rates"`
	FetchedAt  time.Time          `json:"fetched_at"`
	NextUpdate time.Time          `json:"next_update,omitempty"`
}

// providerResponse matches the open.er-api.com /latest payload.
type providerResponse struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64              `json:"time_next_update_unix"`
	Rates              map[string]float64 `json:"rates"`
}

// Client fetches exchange rates with retries, a circuit breaker, and a
// cache-aside layer so the provider sees at most one request per base per TTL.
type Client struct {
	http    *http.Client
	baseURL string
	cache   *cache.VersionedCache
	cb      *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	log     *slog.Logger
}

// NewClient builds a rates client from config. The versioned cache is shared
// with the rest of the service so admin endpoints can inspect and purge
// rate entries like any other.
func NewClient(vc *cache.VersionedCache) *Client {
	cfg := config.Load()
	return &Client{
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL: strings.TrimRight(cfg.RatesBaseURL, "/"),
		cache:   vc,
		cb: circuitbreaker.New(circuitbreaker.Config{
			Name:             "rates-api",
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Timeout:          2 * time.Minute,
		}),
		ttl: cfg.RatesCacheTTL,
		log: logger.WithComponent("rates"),
	}
}

// Latest returns the rate table for base, serving from cache when fresh.
// An empty base defaults to USD.
func (c *Client) Latest(ctx context.Context, base string) (*Snapshot, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = "USD"
	}

	key := "rates:" + base
	value, err := c.cache.GetOrSet(ctx, key, c.ttl, cache.DefaultVersion,
		func(ctx context.Context) (any, error) {
			return c.fetchLatest(ctx, base)
		})
	if err != nil {
		return nil, err
	}

	snap, ok := value.(*Snapshot)
	if !ok {
		return nil, fmt.Errorf("unexpected cache payload under %s", key)
	}
	return snap, nil
}

func (c *Client) fetchLatest(ctx context.Context, base string) (*Snapshot, error) {
	var snap *Snapshot
	err := c.cb.Call(func() error {
		resp, err := httpx.DoWithRetryFactory(c.http, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest/"+base, nil)
		}, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return ClassifyError(resp)
		}

		var body providerResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode rates response: %w", err)
		}
		if body.Result != "success" {
			return classifyProviderError(body.ErrorType)
		}
		if len(body.Rates) == 0 {
			return errors.New("provider returned no rates")
		}

		snap = &Snapshot{
			Base:      body.BaseCode,
			Rates:     body.Rates,
			FetchedAt: time.Unix(body.TimeLastUpdateUnix, 0).UTC(),
		}
		if snap.Base == "" {
			snap.Base = base
		}
		if body.TimeLastUpdateUnix == 0 {
			snap.FetchedAt = time.Now().UTC()
		}
		if body.TimeNextUpdateUnix > 0 {
			snap.NextUpdate = time.Unix(body.TimeNextUpdateUnix, 0).UTC()
		}
		return nil
	})
	if err != nil {
		metrics.RatesFetchTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			c.log.Debug("Rates fetch refused, breaker open", "base", base)
		} else {
			c.log.Warn("Rates fetch failed", "base", base, "error", err)
		}
		return nil, err
	}

	metrics.RatesFetchTotal.WithLabelValues("success").Inc()
	return snap, nil
}
