package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubFetcher struct {
	documents []string
	errs      []error
	calls     int
}

func (s *stubFetcher) FetchDocument(ctx context.Context) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.documents) {
		return s.documents[i], nil
	}
	return s.documents[len(s.documents)-1], nil
}

func TestEnsureFetchesOnceWhileFresh(t *testing.T) {
	fetcher := &stubFetcher{documents: []string{ratesDocument}}
	cache := NewCache(fetcher, time.Hour, zerolog.Nop())

	cache.Ensure(context.Background())
	cache.Ensure(context.Background())
	cache.Ensure(context.Background())

	if fetcher.calls != 1 {
		t.Fatalf("fetcher called %d times, want 1", fetcher.calls)
	}
	if !cache.Fresh() {
		t.Fatal("cache should be fresh after a successful refresh")
	}
	if got := cache.Info().Directions; got != 2 {
		t.Fatalf("snapshot holds %d directions, want 2", got)
	}
}

func TestFailedRefreshKeepsSnapshot(t *testing.T) {
	fetcher := &stubFetcher{
		documents: []string{ratesDocument, ""},
		errs:      []error{nil, errors.New("upstream down")},
	}
	cache := NewCache(fetcher, time.Hour, zerolog.Nop())

	if !cache.Refresh(context.Background()) {
		t.Fatal("first refresh should succeed")
	}
	if cache.Refresh(context.Background()) {
		t.Fatal("second refresh should fail")
	}

	info := cache.Info()
	if info.Directions != 2 {
		t.Fatalf("failed refresh dropped the snapshot: %d directions", info.Directions)
	}
	if info.LastError == "" {
		t.Fatal("failed refresh should record the error")
	}

	if _, ok := cache.Find("USDTTRC20", "CASHAMD", "", ""); !ok {
		t.Fatal("previous snapshot should remain queryable after a failed refresh")
	}
}

func TestEmptyDocumentKeepsSnapshot(t *testing.T) {
	fetcher := &stubFetcher{documents: []string{ratesDocument, "<rates></rates>"}}
	cache := NewCache(fetcher, time.Hour, zerolog.Nop())

	cache.Refresh(context.Background())
	if cache.Refresh(context.Background()) {
		t.Fatal("empty document should not replace the snapshot")
	}
	if got := cache.Info().Directions; got != 2 {
		t.Fatalf("snapshot holds %d directions, want 2", got)
	}
}

func TestFindFallbackOrder(t *testing.T) {
	doc := `<rates>
	  <item><from>USDTTRC20</from><to>CASHAMD</to><in>1</in><out>400</out><city>ERVN</city></item>
	  <item><from>USDTTRC20</from><to>CASHAMD</to><in>1</in><out>405</out><city>GYUMRI</city></item>
	  <item><from>USDTTRC20</from><to>SBERRUB</to><in>1</in><out>96.5</out></item>
	</rates>`
	fetcher := &stubFetcher{documents: []string{doc}}
	cache := NewCache(fetcher, time.Hour, zerolog.Nop())
	cache.Refresh(context.Background())

	// Exact location match.
	d, ok := cache.Find("USDTTRC20", "CASHAMD", "", "GYUMRI")
	if !ok || d.Location != "GYUMRI" {
		t.Fatalf("location lookup failed: %+v ok=%v", d, ok)
	}

	// Unknown location falls back to the first document entry.
	d, ok = cache.Find("USDTTRC20", "CASHAMD", "", "VANADZOR")
	if !ok || d.Location != "ERVN" {
		t.Fatalf("no-location fallback failed: %+v ok=%v", d, ok)
	}

	// Normalized RUB fallback: querying plain RUB resolves the method code.
	d, ok = cache.Find("USDTTRC20", "RUB", "sberbank", "")
	if !ok || d.ToCode != "SBERRUB" {
		t.Fatalf("normalized RUB lookup failed: %+v ok=%v", d, ok)
	}

	if _, ok := cache.Find("BTC", "CASHAMD", "", ""); ok {
		t.Fatal("absent pair should not resolve")
	}
}

func TestEmptyCacheIsNotFresh(t *testing.T) {
	cache := NewCache(&stubFetcher{documents: []string{ratesDocument}}, time.Hour, zerolog.Nop())
	if cache.Fresh() {
		t.Fatal("empty cache must report stale")
	}
	if _, ok := cache.Find("USDTTRC20", "CASHAMD", "", ""); ok {
		t.Fatal("empty cache should not resolve pairs")
	}
}
