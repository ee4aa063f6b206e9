package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Rate sources
const (
	SourceCache    = "cache"
	SourceLive     = "live"
	SourceFallback = "fallback"
)

const ratePair = BaseCurrency + ":" + DisplayCurrency

// RateFetcher retrieves the live USD to LKR rate
type RateFetcher interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// RateCache keeps the last live rate for a while
type RateCache interface {
	GetExchangeRate(ctx context.Context, pair string) (decimal.Decimal, bool, error)
	SetExchangeRate(ctx context.Context, pair string, rate decimal.Decimal, ttl time.Duration) error
}

// ExchangeRate is a rate together with where it came from
type ExchangeRate struct {
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source"`
}

// IsFallback reports whether the hardcoded rate was used
func (r ExchangeRate) IsFallback() bool {
	return r.Source == SourceFallback
}

// HTTPRateFetcher reads rates from an open.er-api.com compatible endpoint
type HTTPRateFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPRateFetcher creates a fetcher with a traced HTTP client
func NewHTTPRateFetcher(url string, timeout time.Duration) *HTTPRateFetcher {
	return &HTTPRateFetcher{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type ratesResponse struct {
	Result string                 `json:"result"`
	Rates  map[string]json.Number `json:"rates"`
}

// FetchRate implements RateFetcher
func (f *HTTPRateFetcher) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate endpoint returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rates: %w", err)
	}

	raw, ok := body.Rates[DisplayCurrency]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate for %s missing from response", DisplayCurrency)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", raw, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s", rate)
	}

	return rate, nil
}

// RateService resolves the current rate. It never fails: any problem with the
// cache or the live source ends in the fallback rate.
type RateService struct {
	fetcher  RateFetcher
	cache    RateCache
	ttl      time.Duration
	fallback decimal.Decimal
	logger   *zap.Logger
}

// NewRateService creates a rate service. cache may be nil.
func NewRateService(fetcher RateFetcher, cache RateCache, ttl time.Duration, fallback decimal.Decimal) *RateService {
	return &RateService{
		fetcher:  fetcher,
		cache:    cache,
		ttl:      ttl,
		fallback: fallback,
		logger:   util.Named("pricing.rates"),
	}
}

// Rate returns the current USD to LKR rate
func (s *RateService) Rate(ctx context.Context) ExchangeRate {
	ctx, span := util.StartSpan(ctx, "RateService.Rate")
	defer span.End()

	if s.cache != nil {
		rate, ok, err := s.cache.GetExchangeRate(ctx, ratePair)
		if err != nil {
			s.logger.Warn("Exchange rate cache read failed", zap.Error(err))
		} else if ok {
			return ExchangeRate{Rate: rate, Source: SourceCache}
		}
	}

	if s.fetcher == nil {
		util.ExchangeRateFallbackTotal.WithLabelValues("no_source").Inc()
		return ExchangeRate{Rate: s.fallback, Source: SourceFallback}
	}

	rate, err := s.fetcher.FetchRate(ctx)
	if err != nil {
		s.logger.Warn("Using fallback exchange rate",
			zap.String("fallback", s.fallback.String()),
			zap.Error(err))
		util.ExchangeRateFallbackTotal.WithLabelValues("fetch_failed").Inc()
		return ExchangeRate{Rate: s.fallback, Source: SourceFallback}
	}

	if s.cache != nil {
		if err := s.cache.SetExchangeRate(ctx, ratePair, rate, s.ttl); err != nil {
			s.logger.Warn("Exchange rate cache write failed", zap.Error(err))
		}
	}

	return ExchangeRate{Rate: rate, Source: SourceLive}
}
