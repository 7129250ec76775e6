package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrderAndBound(t *testing.T) {
	inputs := make([]int, 40)
	for i := range inputs {
		inputs[i] = i
	}
	var inFlight, peak atomic.Int32
	out, err := Map(context.Background(), 3, inputs, func(ctx context.Context, n int) (string, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(time.Duration(40-n) * 100 * time.Microsecond)
		return fmt.Sprintf("item-%d", n), nil
	})
	require.NoError(t, err)
	require.Len(t, out, len(inputs))
	for i, s := range out {
		assert.Equal(t, fmt.Sprintf("item-%d", i), s)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestMap_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), 2, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		in          string
		first, last int
		wantErr     bool
	}{
		{"1-5", 1, 5, false},
		{" 3 ", 3, 3, false},
		{"2 - 4", 2, 4, false},
		{"0-2", 0, 0, true},
		{"5-1", 0, 0, true},
		{"a-b", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		first, last, err := ParsePageRange(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.first, first)
		assert.Equal(t, tt.last, last)
	}
}

func TestFetcher_SendsUserAgentAndRejectsNon200(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "test-agent"}, zerolog.Nop())
	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "test-agent", gotUA)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetcher_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{BreakerFailures: 2, BreakerCooldown: time.Hour}, zerolog.Nop())
	for i := 0; i < 5; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_Delay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Delay: 50 * time.Millisecond}, zerolog.Nop())
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestFetcher_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("page body"))
	}))
	defer srv.Close()

	cache, err := OpenPageCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	f := NewFetcher(FetcherConfig{Cache: cache}, zerolog.Nop())
	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), srv.URL+"/book")
		require.NoError(t, err)
		assert.Equal(t, "page body", string(body))
	}
	assert.Equal(t, int32(1), hits.Load())

	_, ok, err := cache.Get(srv.URL + "/other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScraper_Run(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/searchlist/fantasy", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `<a class="nav" href="/library/book/1-first">1</a><a class="nav" href="/library/book/2-second">2</a>`)
		case "2":
			fmt.Fprint(w, `<a class="nav" href="/library/book/3-broken">3</a>`)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/library/book/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/library/book/")
		fmt.Fprintf(w, `<h1 class="lib_title">%s</h1><span class="lib_book_author"><a>Author %s</a></span>
<span itemprop="genre">Fantasy</span><div class="lib_description">About %s.</div>`, name, name, name)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewScraper(NewRisingShadow(srv.URL), NewFetcher(FetcherConfig{}, zerolog.Nop()), 2, zerolog.Nop())
	recs, err := s.Run(context.Background(), "fantasy", 1, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "1-first", recs[0].Title)
	assert.Equal(t, "Author 1-first", recs[0].Book().Author)
	assert.Equal(t, "About 1-first.", recs[0].Description)
	assert.Equal(t, "2-second", recs[1].Title)
	assert.False(t, recs[2].Complete())
	assert.Equal(t, srv.URL+"/library/book/3-broken", recs[2].URL)
}

func TestScraper_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScraper(NewGoodreads(srv.URL), NewFetcher(FetcherConfig{}, zerolog.Nop()), 1, zerolog.Nop())
	_, err := s.Run(ctx, "x", 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
