package gateway

import (
	"io"
	"log/slog"
	"testing"

	"github.com/polkiloo/orderflow/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{GatewayURL: "http://example.com", GatewayAccessToken: "token", GatewayMaxRetries: 2}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client, err := newClient(clientParams{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	httpClient, ok := client.(*HTTPClient)
	if !ok || httpClient.maxRetries != 2 {
		t.Fatalf("unexpected client: %#v", client)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	cfg := &config.Config{GatewayURL: "http://example.com"}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if _, err := newClient(clientParams{Config: cfg, Logger: logger}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewDecoderUsesSecret(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	decoder := newDecoder(clientParams{Config: &config.Config{WebhookSecret: "s"}, Logger: logger})
	if !decoder.(*WebhookDecoder).VerifiesSignatures() {
		t.Fatal("expected signature verification")
	}

	decoder = newDecoder(clientParams{Config: &config.Config{}, Logger: logger})
	if decoder.(*WebhookDecoder).VerifiesSignatures() {
		t.Fatal("expected verification to be disabled")
	}
}
