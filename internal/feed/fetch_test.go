package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPFetcherReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "armcalc-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(ratesDocument))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(HTTPOptions{
		URL:       server.URL,
		Timeout:   5 * time.Second,
		UserAgent: "armcalc-test",
	}, zerolog.Nop())

	body, err := fetcher.FetchDocument(context.Background())
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if body != ratesDocument {
		t.Fatal("body does not match served document")
	}
}

func TestHTTPFetcherDoesNotRetryFatalStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(HTTPOptions{URL: server.URL, MaxRetries: 3}, zerolog.Nop())
	if _, err := fetcher.FetchDocument(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server hit %d times, want 1 (500 is not retryable)", n)
	}
}

func TestHTTPFetcherRequiresURL(t *testing.T) {
	fetcher := NewHTTPFetcher(HTTPOptions{}, zerolog.Nop())
	if _, err := fetcher.FetchDocument(context.Background()); err == nil {
		t.Fatal("expected error when URL is unset")
	}
}

func TestPriceClientCachesWithinTTL(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.URL.Query().Get("ids"); got != "tether" {
			t.Errorf("ids = %q, want tether", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tether":{"usd":1.0,"amd":402.5,"usd_24h_change":0.01}}`))
	}))
	defer server.Close()

	client := NewPriceClient(PriceOptions{BaseURL: server.URL, TTL: time.Hour}, zerolog.Nop())

	price, err := client.GetPrice(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price == nil || price.Symbol != "USDT" {
		t.Fatalf("unexpected price: %+v", price)
	}
	if price.AMD == nil || *price.AMD != 402.5 {
		t.Fatalf("AMD price not decoded: %+v", price.AMD)
	}

	if _, err := client.GetPrice(context.Background(), "usdt"); err != nil {
		t.Fatalf("second GetPrice: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server hit %d times, want 1 (cached)", n)
	}
}

func TestPriceClientUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewPriceClient(PriceOptions{BaseURL: server.URL}, zerolog.Nop())
	price, err := client.GetPrice(context.Background(), "nosuchcoin")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price != nil {
		t.Fatalf("unknown symbol should yield nil price, got %+v", price)
	}
}
