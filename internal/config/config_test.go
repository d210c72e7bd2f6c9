package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	ResetForTest()
	for _, k := range []string{
		"USER_AGENT", "HTTP_MAX_RETRIES", "HTTP_RETRY_BASE_MS",
		"MIN_TIME_BETWEEN_REQUESTS_S", "AMQP_QUEUE",
	} {
		os.Unsetenv(k)
	}
	t.Cleanup(ResetForTest)

	cfg := Load()
	if cfg.UserAgent == "" {
		t.Fatalf("expected default UA, got empty")
	}
	if cfg.HTTPMaxRetries != 3 {
		t.Fatalf("expected default retries=3, got %d", cfg.HTTPMaxRetries)
	}
	if cfg.MinTimeBetweenRequests != time.Second {
		t.Fatalf("expected default spacing=1s, got %v", cfg.MinTimeBetweenRequests)
	}
	if cfg.AMQPQueue != "reddit-proxy" {
		t.Fatalf("expected default queue name, got %q", cfg.AMQPQueue)
	}
}

func TestLoadOverrides(t *testing.T) {
	ResetForTest()
	os.Setenv("MIN_TIME_BETWEEN_REQUESTS_S", "2.5")
	os.Setenv("AMQP_QUEUE", "custom-queue")
	t.Cleanup(func() {
		os.Unsetenv("MIN_TIME_BETWEEN_REQUESTS_S")
		os.Unsetenv("AMQP_QUEUE")
		ResetForTest()
	})

	cfg := Load()
	if cfg.MinTimeBetweenRequests != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s spacing, got %v", cfg.MinTimeBetweenRequests)
	}
	if cfg.AMQPQueue != "custom-queue" {
		t.Fatalf("expected custom queue name, got %q", cfg.AMQPQueue)
	}
}
