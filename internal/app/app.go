// Package app wires configuration into running services and backs the CLI
// commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/armcoincrypto/Armcalc/internal/bot"
	"github.com/armcoincrypto/Armcalc/internal/config"
	"github.com/armcoincrypto/Armcalc/internal/feed"
	"github.com/armcoincrypto/Armcalc/internal/panel"
	"github.com/armcoincrypto/Armcalc/internal/rates"
	"github.com/armcoincrypto/Armcalc/internal/scheduler"
	"github.com/armcoincrypto/Armcalc/internal/service"
	"github.com/armcoincrypto/Armcalc/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeedCache() *feed.Cache {
	fetcher := feed.NewHTTPFetcher(feed.HTTPOptions{
		URL:        a.Config.Feed.URL,
		Timeout:    a.Config.Feed.RequestTimeout,
		MaxRetries: a.Config.Feed.MaxRetries,
		UserAgent:  a.Config.Feed.UserAgent,
	}, a.Logger)
	return feed.NewCache(fetcher, a.Config.Feed.TTL, a.Logger)
}

func (a *App) newRates() *rates.Service {
	convert := a.Config.Convert
	return rates.NewService(a.newFeedCache(), rates.Options{
		DefaultUSDTUnit:  "USDT" + strings.ToUpper(convert.DefaultUSDTNetwork),
		DefaultAMDUnit:   amdUnitCode(convert.DefaultAMDUnit),
		DefaultUSDUnit:   "CASHUSD",
		DefaultRUBMethod: convert.DefaultRUBMethod,
	}, a.Logger)
}

func amdUnitCode(unit string) string {
	if strings.EqualFold(unit, "card") {
		return "CARDAMD"
	}
	return "CASHAMD"
}

func (a *App) newPriceClient() *feed.PriceClient {
	return feed.NewPriceClient(feed.PriceOptions{
		BaseURL:    a.Config.Price.BaseURL,
		TTL:        a.Config.Price.TTL,
		Timeout:    a.Config.Price.RequestTimeout,
		MaxRetries: a.Config.Price.MaxRetries,
	}, a.Logger)
}

// newPanelStore prefers Redis when configured, falling back to process
// memory.
func (a *App) newPanelStore() (panel.Store, func()) {
	if a.Config.Redis.Addr == "" {
		return panel.NewMemoryStore(panel.DefaultTTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	closer := func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("redis close failed")
		}
	}
	return panel.NewRedisStore(client, panel.DefaultTTL), closer
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool, a.Config.History.Limit)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run starts the bot loop and, when enabled, the background sampler; it
// blocks until a signal arrives or a component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !a.Config.Telegram.Enabled && !a.Config.Sampler.Enabled {
		return errors.New("nothing to run: enable telegram and/or the sampler")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	panels, closePanels := a.newPanelStore()
	defer closePanels()

	rateSvc := a.newRates()

	errCh := make(chan error, 2)
	running := 0

	if a.Config.Sampler.Enabled {
		sched, schedErr := scheduler.New(scheduler.Options{
			Interval:      a.Config.Sampler.Interval,
			AlignToBucket: a.Config.Sampler.AlignToBucket,
			StartupDelay:  a.Config.Sampler.StartupDelay,
		}, a.Logger)
		if schedErr != nil {
			return schedErr
		}

		var snapshots storage.SnapshotStore
		if store != nil {
			snapshots = store
		}
		sampler := service.NewSampler(sched, rateSvc, snapshots, panels,
			service.ParseTrackedPairs(a.Config.Sampler.TrackedPairs), a.Logger)

		running++
		go func() {
			a.Logger.Info().Msg("starting rate sampler")
			errCh <- sampler.Run(ctx)
		}()
	}

	if a.Config.Telegram.Enabled {
		client := bot.NewClient(a.Config.Telegram.BotToken, a.Config.Telegram.APIBase,
			a.Config.Telegram.PollTimeout, a.Logger)

		var history storage.HistoryStore
		if store != nil {
			history = store
		}
		handler := bot.NewHandler(rateSvc, a.newPriceClient(), panels, history,
			a.Config.Convert.AutoFix, a.Logger)

		running++
		go func() {
			a.Logger.Info().Msg("starting telegram bot")
			errCh <- client.Poll(ctx, handler)
		}()
	}

	for i := 0; i < running; i++ {
		if runErr := <-errCh; runErr != nil && !errors.Is(runErr, context.Canceled) {
			cancel()
			a.Logger.Error().Err(runErr).Msg("component terminated with error")
			return runErr
		}
		cancel()
	}

	a.Logger.Info().Msg("stopped")
	return nil
}

// Calc evaluates one expression and prints the result.
func (a *App) Calc(expression string) error {
	result := evalExpression(expression)
	fmt.Fprintln(os.Stdout, result)
	return nil
}

// Units converts a quantity between units and prints the result.
func (a *App) Units(amountStr, fromUnit, toUnit string) error {
	line, err := convertUnits(amountStr, fromUnit, toUnit)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, line)
	return nil
}

// Rate resolves a pair and prints the quote.
func (a *App) Rate(ctx context.Context, from, to, method, location string) error {
	quote := a.newRates().GetRate(ctx, from, to, method, location)
	if quote == nil {
		return fmt.Errorf("%s -> %s is not available", strings.ToUpper(from), strings.ToUpper(to))
	}
	fmt.Fprintf(os.Stdout, "1 %s = %s %s\n", quote.FromDisplay, quote.Rate.StringFixed(4), quote.ToDisplay)
	return nil
}

// Convert performs a one-shot conversion and prints the result.
func (a *App) Convert(ctx context.Context, amountStr, from, to, method string) error {
	state := panel.NewState()
	state, err := state.SetAmount(amountStr)
	if err != nil {
		return fmt.Errorf("amount %q: %w", amountStr, err)
	}

	quote := a.newRates().GetRate(ctx, from, to, method, "")
	if quote == nil {
		return fmt.Errorf("%s -> %s is not available", strings.ToUpper(from), strings.ToUpper(to))
	}

	converted := quote.Convert(state.Amount)
	fmt.Fprintf(os.Stdout, "%s %s = %s %s (1 %s = %s %s)\n",
		state.Amount.String(), quote.FromDisplay, converted.String(), quote.ToDisplay,
		quote.FromDisplay, quote.Rate.StringFixed(4), quote.ToDisplay)
	return nil
}

// Sweep removes expired panel states from the configured store.
func (a *App) Sweep(ctx context.Context) error {
	panels, closePanels := a.newPanelStore()
	defer closePanels()

	removed, err := panels.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "removed %d expired panel states\n", removed)
	return nil
}

// ExportOptions hold parameters for exporting sampled rates.
type ExportOptions struct {
	FromCode  string
	ToCode    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// RatesOptions configure the rates listing.
type RatesOptions struct {
	FilterFrom string
	FilterTo   string
}

// HistoryOptions configure the history listing.
type HistoryOptions struct {
	UserID int64
	Limit  int
}
