package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/graylight/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylight-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		BaseTopic: "zigbee2mqtt",
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "user", Password: "pass"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "graylight-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "user" || opts.Password != "pass" {
		t.Error("credentials not applied")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
	if !opts.WillEnabled || opts.WillTopic != StatusTopic || !opts.WillRetained {
		t.Errorf("will = (%v, %q, retained %v)", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig should be set")
	}
}

func TestStatusPayload(t *testing.T) {
	var msg statusMessage
	if err := json.Unmarshal(statusPayload("gl-1", "offline", "graceful_shutdown"), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Status != "offline" || msg.ClientID != "gl-1" || msg.Reason != "graceful_shutdown" {
		t.Errorf("unexpected payload %+v", msg)
	}
	if msg.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

// A Client that never connected rejects every operation without touching
// the network.
func TestClient_NotConnected(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription), logger: noopLogger{}}
	ctx := context.Background()
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish(ctx, "", nil, 0, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish(ctx, "a", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish(ctx, "a", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"publish disconnected", c.Publish(ctx, "a", []byte("x"), 0, false), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe(ctx, "", 0, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe(ctx, "a", 3, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe(ctx, "a", 0, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe(ctx, "a", 0, noop), ErrNotConnected},
		{"unsubscribe disconnected", c.Unsubscribe(ctx, "a"), ErrNotConnected},
		{"health", c.HealthCheck(ctx), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
