package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
)

func day() domain.CivilDate { return domain.NewCivilDate(2024, time.May, 1) }

func TestClientRateOn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024-05-01", r.URL.Path)
		assert.Equal(t, "GBP", r.URL.Query().Get("base"))
		assert.Equal(t, "ZAR", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"amount":1.0,"base":"GBP","date":"2024-05-01","rates":{"ZAR":23.45}}`))
	}))
	defer srv.Close()

	rate, err := NewClient(srv.URL).RateOn(context.Background(), day())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("23.45")), "got %s", rate)
}

func TestClientMissingRateIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RateOn(context.Background(), day())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUpstream))
}

func TestClientNotFoundDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RateOn(context.Background(), day())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUpstream))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"rates":{"ZAR":23.45}}`))
	}))
	defer srv.Close()

	rate, err := NewClient(srv.URL).RateOn(context.Background(), day())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("23.45")))
	assert.Equal(t, int32(3), calls.Load())
}

// countingProvider counts lookups behind the cache.
type countingProvider struct {
	calls int
	rate  decimal.Decimal
	err   error
}

func (p *countingProvider) RateOn(_ context.Context, _ domain.CivilDate) (decimal.Decimal, error) {
	p.calls++
	return p.rate, p.err
}

func TestCacheSingleFetchPerDay(t *testing.T) {
	inner := &countingProvider{rate: decimal.RequireFromString("23.45")}
	cache := NewCache(inner)

	for i := 0; i < 3; i++ {
		rate, err := cache.RateOn(context.Background(), day())
		require.NoError(t, err)
		assert.True(t, rate.Equal(inner.rate))
	}
	assert.Equal(t, 1, inner.calls)

	_, err := cache.RateOn(context.Background(), day().Add(1))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "different day fetches again")
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{err: errs.Upstream(nil, "down")}
	cache := NewCache(inner)

	_, err := cache.RateOn(context.Background(), day())
	require.Error(t, err)
	_, err = cache.RateOn(context.Background(), day())
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
