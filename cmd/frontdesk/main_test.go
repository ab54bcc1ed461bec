package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/vango-go/frontdesk/pkg/gateway/config"
)

func testConfig() config.Config {
	return config.Config{
		Addr:                "127.0.0.1:0",
		Model:               "cerebras/llama-3.3-70b",
		CerebrasAPIKey:      "test-key",
		AssemblyAIAPIKey:    "test-key",
		ElevenLabsAPIKey:    "test-key",
		VoiceID:             "voice",
		SampleRate:          8000,
		ChunkBytes:          800,
		Timezone:            "UTC",
		ReadHeaderTimeout:   time.Second,
		WSWriteTimeout:      time.Second,
		WSPingInterval:      time.Second,
		ShutdownGracePeriod: time.Second,
	}
}

func TestBuildProvider(t *testing.T) {
	cfg := testConfig()
	p, model, err := buildProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildProvider() error = %v", err)
	}
	if p.Name() != "cerebras" || model != "llama-3.3-70b" {
		t.Fatalf("provider = %q, model = %q", p.Name(), model)
	}

	// A provider is only registered when its API key is configured.
	cfg.Model = "gemini/gemini-2.0-flash"
	_, _, err = buildProvider(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), `"gemini"`) {
		t.Fatalf("error = %v, want unconfigured gemini rejection", err)
	}

	cfg = testConfig()
	cfg.CerebrasAPIKey = ""
	if _, _, err := buildProvider(context.Background(), cfg); err == nil {
		t.Fatal("expected error without api key")
	}

	cfg = testConfig()
	cfg.Model = "unknown/model"
	if _, _, err := buildProvider(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestRun_MissingDeps(t *testing.T) {
	if err := run(context.Background(), nil, appDeps{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestRun_ConfigError(t *testing.T) {
	deps := defaultAppDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{}, errors.New("bad config")
	}
	err := run(context.Background(), nil, deps)
	if err == nil || !strings.Contains(err.Error(), "bad config") {
		t.Fatalf("error = %v", err)
	}
}

func TestRun_StartsAndShutsDownOnSignal(t *testing.T) {
	sigCh := make(chan chan<- os.Signal, 1)
	deps := appDeps{
		loadConfig: func() (config.Config, error) { return testConfig(), nil },
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			sigCh <- c
		},
		signalStop: func(c chan<- os.Signal) {},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- run(context.Background(), nil, deps) }()

	select {
	case c := <-sigCh:
		time.Sleep(50 * time.Millisecond)
		c <- syscall.SIGTERM
	case <-time.After(5 * time.Second):
		t.Fatal("signal channel never registered")
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after signal")
	}
}

func TestRunMain_ReportsFailure(t *testing.T) {
	var stderr bytes.Buffer
	deps := defaultAppDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{}, errors.New("boom")
	}
	if code := runMain(context.Background(), &stderr, deps); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "boom") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
