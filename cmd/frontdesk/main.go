// Command frontdesk runs the voice front-desk gateway: it answers the
// telephony voice webhook, bridges call audio to speech recognition and
// synthesis, and drives the booking dialogue.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vango-go/frontdesk/internal/dotenv"
	"github.com/vango-go/frontdesk/pkg/booking"
	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/core/providers/cerebras"
	"github.com/vango-go/frontdesk/pkg/core/providers/gemini"
	"github.com/vango-go/frontdesk/pkg/core/voice/stt"
	"github.com/vango-go/frontdesk/pkg/core/voice/tts"
	"github.com/vango-go/frontdesk/pkg/gateway/config"
	"github.com/vango-go/frontdesk/pkg/gateway/handlers"
	"github.com/vango-go/frontdesk/pkg/gateway/live/sessions"
	gatewayserver "github.com/vango-go/frontdesk/pkg/gateway/server"
	"github.com/vango-go/frontdesk/pkg/telephony"
)

type appDeps struct {
	loadConfig   func() (config.Config, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.LoadFromEnv,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// buildRegistry registers every provider whose API key is configured.
func buildRegistry(ctx context.Context, cfg config.Config) (core.ProviderRegistry, error) {
	registry := core.NewProviderRegistry()
	if cfg.CerebrasAPIKey != "" {
		registry.Register(cerebras.New(cfg.CerebrasAPIKey))
	}
	if cfg.GeminiAPIKey != "" {
		p, err := gemini.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		registry.Register(p)
	}
	return registry, nil
}

func buildProvider(ctx context.Context, cfg config.Config) (core.Provider, string, error) {
	providerName, modelName, err := core.ParseModelString(cfg.Model)
	if err != nil {
		return nil, "", err
	}

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	p, ok := registry.Get(providerName)
	if !ok {
		available := strings.Join(registry.List(), ", ")
		if available == "" {
			available = "none"
		}
		return nil, "", fmt.Errorf("no API key configured for model provider %q (configured providers: %s)", providerName, available)
	}
	return p, modelName, nil
}

// buildBooking selects the booking store: Postgres when a database URL is
// configured, in-memory otherwise. The returned func releases the store.
func buildBooking(ctx context.Context, cfg config.Config, logger *slog.Logger) (booking.Service, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory booking store")
		return booking.NewMemoryService(loc), func() {}, nil
	}

	if err := booking.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("migrate booking schema: %w", err)
	}
	store, err := booking.NewPostgres(ctx, cfg.DatabaseURL, loc)
	if err != nil {
		return nil, nil, fmt.Errorf("connect booking store: %w", err)
	}
	logger.Info("using postgres booking store")
	return store, store.Close, nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func run(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider, modelName, err := buildProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build model provider: %w", err)
	}

	store, closeStore, err := buildBooking(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var dialer handlers.Dialer
	if cfg.OutboundCallsEnabled() {
		dialer = telephony.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}

	tracker := sessions.NewTracker()
	gw := gatewayserver.New(gatewayserver.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Provider:  provider,
		ModelName: modelName,
		Booking:   store,
		STT:       stt.NewAssemblyAI(cfg.AssemblyAIAPIKey),
		TTS:       tts.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.VoiceID, tts.WithModelID(cfg.TTSModelID)),
		Dialer:    dialer,
		Sessions:  tracker,
		Now:       func() time.Time { return time.Now().In(loc) },
	})
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway",
		"addr", cfg.Addr,
		"model", cfg.Model,
		"outbound_calls", cfg.OutboundCallsEnabled(),
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	// Let live calls finish their goodbye; cut them off at the grace limit.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !tracker.Wait(waitCtx) {
		canceled := tracker.CancelAll()
		logger.Warn("canceled live calls at shutdown", "count", canceled)
		tracker.Wait(nil)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "frontdesk: %v\n", err)
		return 1
	}

	if err := run(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "frontdesk: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultAppDeps()))
}
