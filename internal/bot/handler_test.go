package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/armcoincrypto/Armcalc/internal/feed"
	"github.com/armcoincrypto/Armcalc/internal/panel"
	"github.com/armcoincrypto/Armcalc/internal/rates"
	"github.com/armcoincrypto/Armcalc/internal/storage"
)

const handlerFeedDocument = `<rates>
  <item><from>USDTTRC20</from><to>CASHAMD</to><in>1</in><out>402.50</out></item>
  <item><from>CASHAMD</from><to>USDTTRC20</to><in>405</in><out>1</out></item>
  <item><from>USDTTRC20</from><to>SBERRUB</to><in>1</in><out>96.50</out><method>sberbank</method></item>
</rates>`

type fixtureFetcher struct{ document string }

func (f fixtureFetcher) FetchDocument(ctx context.Context) (string, error) {
	return f.document, nil
}

type recordingSender struct {
	replies []string
}

func (r *recordingSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	r.replies = append(r.replies, text)
	return nil
}

type memoryHistory struct {
	entries []storage.HistoryEntry
}

func (m *memoryHistory) InsertHistory(ctx context.Context, e storage.HistoryEntry) (storage.HistoryEntry, error) {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memoryHistory) ListHistory(ctx context.Context, userID int64, limit int) ([]storage.HistoryEntry, error) {
	out := make([]storage.HistoryEntry, 0)
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memoryHistory) ClearHistory(ctx context.Context, userID int64) error {
	m.entries = nil
	return nil
}

func newTestHandler(t *testing.T, history storage.HistoryStore) *Handler {
	t.Helper()
	cache := feed.NewCache(fixtureFetcher{document: handlerFeedDocument}, time.Hour, zerolog.Nop())
	rateSvc := rates.NewService(cache, rates.Options{}, zerolog.Nop())
	panels := panel.NewMemoryStore(time.Hour)
	return NewHandler(rateSvc, nil, panels, history, true, zerolog.Nop())
}

func send(t *testing.T, h *Handler, userID int64, text string) string {
	t.Helper()
	sender := &recordingSender{}
	h.HandleMessage(context.Background(), sender, Message{
		From: &User{ID: userID},
		Chat: Chat{ID: userID},
		Text: text,
	})
	if len(sender.replies) != 1 {
		t.Fatalf("message %q produced %d replies", text, len(sender.replies))
	}
	return sender.replies[0]
}

func TestCalcCommand(t *testing.T) {
	h := newTestHandler(t, nil)

	reply := send(t, h, 1, "/calc 100+10%")
	if reply != "100+10% = 110" {
		t.Fatalf("reply = %q", reply)
	}

	// Bare messages evaluate too.
	reply = send(t, h, 1, "2*3+4")
	if reply != "2*3+4 = 10" {
		t.Fatalf("bare expression reply = %q", reply)
	}

	reply = send(t, h, 1, "/calc 1/0")
	if !strings.Contains(strings.ToLower(reply), "zero") {
		t.Fatalf("division by zero reply = %q", reply)
	}
}

func TestUnitsCommand(t *testing.T) {
	h := newTestHandler(t, nil)

	reply := send(t, h, 1, "/units 10 km mi")
	if !strings.HasPrefix(reply, "10 km = 6.2137") {
		t.Fatalf("reply = %q", reply)
	}

	reply = send(t, h, 1, "/units 10 km kg")
	if !strings.Contains(reply, "Cannot convert") {
		t.Fatalf("cross-category reply = %q", reply)
	}
}

func TestRateCommand(t *testing.T) {
	h := newTestHandler(t, nil)

	reply := send(t, h, 1, "/rate usdt amd")
	if !strings.Contains(reply, "402.5000") {
		t.Fatalf("reply = %q", reply)
	}

	// Unavailable pairs answer with alternatives, not a bare failure.
	reply = send(t, h, 1, "/rate usdt usd")
	if !strings.Contains(reply, "not available") {
		t.Fatalf("unavailable reply = %q", reply)
	}
	if !strings.Contains(reply, "Available from USDT") {
		t.Fatalf("reply lacks suggestions: %q", reply)
	}
}

func TestConvertFlow(t *testing.T) {
	h := newTestHandler(t, nil)

	reply := send(t, h, 7, "/convert")
	if !strings.Contains(reply, "From: USDT (TRC20)") || !strings.Contains(reply, "To: AMD (Cash)") {
		t.Fatalf("panel render = %q", reply)
	}

	reply = send(t, h, 7, "/convert 250")
	if !strings.Contains(reply, "250 USDT (TRC20) = 100625 AMD (Cash)") {
		t.Fatalf("conversion reply = %q", reply)
	}

	// The amount sticks across panel views.
	reply = send(t, h, 7, "/convert")
	if !strings.Contains(reply, "Amount: 250") {
		t.Fatalf("panel after convert = %q", reply)
	}

	reply = send(t, h, 7, "/convert -1")
	if reply != "Amount must be positive." {
		t.Fatalf("negative amount reply = %q", reply)
	}

	reply = send(t, h, 7, "/convert close")
	if reply != "Panel closed." {
		t.Fatalf("close reply = %q", reply)
	}
}

func TestConvertSwap(t *testing.T) {
	h := newTestHandler(t, nil)

	reply := send(t, h, 9, "/convert swap")
	if !strings.Contains(reply, "From: AMD (Cash)") || !strings.Contains(reply, "To: USDT (TRC20)") {
		t.Fatalf("panel after swap = %q", reply)
	}

	// Selecting the other side's currency swaps instead of colliding.
	reply = send(t, h, 9, "/convert from usdt")
	if !strings.Contains(reply, "From: USDT (TRC20)") || !strings.Contains(reply, "To: AMD (Cash)") {
		t.Fatalf("panel after from usdt = %q", reply)
	}
}

func TestHistoryCommands(t *testing.T) {
	history := &memoryHistory{}
	h := newTestHandler(t, history)

	send(t, h, 3, "/calc 2+2")
	reply := send(t, h, 3, "/history")
	if !strings.Contains(reply, "2+2 = 4") {
		t.Fatalf("history reply = %q", reply)
	}

	reply = send(t, h, 3, "/clear")
	if reply != "History cleared." {
		t.Fatalf("clear reply = %q", reply)
	}
	reply = send(t, h, 3, "/history")
	if reply != "No history yet." {
		t.Fatalf("post-clear history = %q", reply)
	}
}

func TestRateAndPriceLookupsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":65000.0}}`))
	}))
	defer server.Close()

	history := &memoryHistory{}
	cache := feed.NewCache(fixtureFetcher{document: handlerFeedDocument}, time.Hour, zerolog.Nop())
	rateSvc := rates.NewService(cache, rates.Options{}, zerolog.Nop())
	prices := feed.NewPriceClient(feed.PriceOptions{BaseURL: server.URL}, zerolog.Nop())
	h := NewHandler(rateSvc, prices, panel.NewMemoryStore(time.Hour), history, true, zerolog.Nop())

	send(t, h, 4, "/rate usdt amd")
	send(t, h, 4, "/price btc")

	if len(history.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(history.entries))
	}
	if e := history.entries[0]; e.EntryType != storage.EntryRate ||
		e.Input != "USDTTRC20 -> CASHAMD" || e.Result != "402.5000" {
		t.Fatalf("rate entry = %+v", e)
	}
	if e := history.entries[1]; e.EntryType != storage.EntryPrice ||
		e.Input != "btc" || e.Result != "$65000.00" {
		t.Fatalf("price entry = %+v", e)
	}
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestHandler(t, nil)
	if reply := send(t, h, 1, "/history"); reply != "History is not enabled." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestCommandWithBotSuffix(t *testing.T) {
	h := newTestHandler(t, nil)
	reply := send(t, h, 1, "/calc@armcalc_bot 1+1")
	if reply != "1+1 = 2" {
		t.Fatalf("reply = %q", reply)
	}
}
