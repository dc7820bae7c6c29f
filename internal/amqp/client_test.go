package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}
	for attempt, d := range want {
		assert.Equal(t, d, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	for _, attempt := range []int{5, 9, 40} {
		assert.Equal(t, maxBackoff, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, time.Second, exponentialBackoff(-1))
}

// Errors the consumer loop treats as a lost broker, which trigger a reconnect
// rather than ending ConsumeRefresh.
func TestIsConnectionError_RefreshConsumer(t *testing.T) {
	reconnect := []error{
		errors.New("message channel closed"),
		amqp091.ErrClosed,
		fmt.Errorf("start consuming: %w", amqp091.ErrClosed),
		errors.New("connection closed"),
		errors.New("dial tcp: connection refused"),
		errors.New("read: unexpected EOF"),
		errors.New("write: broken pipe"),
	}
	for _, err := range reconnect {
		assert.True(t, isConnectionError(err), "%v", err)
	}

	terminal := []error{
		nil,
		errors.New("unmarshal refresh message: unexpected token"),
		errors.New("Exception (404) Reason: NOT_FOUND - no queue 'engdash.refresh'"),
	}
	for _, err := range terminal {
		assert.False(t, isConnectionError(err), "%v", err)
	}
}

func TestConsumeRefresh_RetriesWhenChannelIsGone(t *testing.T) {
	client := &Client{url: "not-a-broker-url", queueName: "engdash.refresh"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	called := false
	err := client.ConsumeRefresh(ctx, func(context.Context, *RefreshMessage) error {
		called = true
		return nil
	})

	// A missing channel is a connection error, so the loop keeps waiting to
	// reconnect until the context ends instead of returning it.
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestPublishRefresh_BrokerDownOpensCircuit(t *testing.T) {
	client := &Client{url: "not-a-broker-url", exchangeName: "engdash.events"}

	for i := 0; i < maxFailures; i++ {
		err := client.PublishRefresh(context.Background(), "sheet edited")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen, "publish %d", i)
		assert.Contains(t, err.Error(), "reconnect")
	}
	assert.Equal(t, int32(StateOpen), atomic.LoadInt32(&client.state))

	err := client.PublishRefresh(context.Background(), "sheet edited")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "publish refresh")
}

func TestRefreshCircuit_Transitions(t *testing.T) {
	client := &Client{}
	assert.False(t, client.isCircuitOpen(), "new publisher starts closed")

	for i := 0; i < maxFailures-1; i++ {
		client.recordFailure()
	}
	assert.False(t, client.isCircuitOpen(), "below the failure limit")

	client.recordFailure()
	assert.True(t, client.isCircuitOpen(), "at the failure limit")

	client.mu.Lock()
	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	client.mu.Unlock()
	assert.False(t, client.isCircuitOpen(), "cool-down elapsed")
	assert.Equal(t, int32(StateHalfOpen), atomic.LoadInt32(&client.state))

	client.recordSuccess()
	assert.Equal(t, int32(StateClosed), atomic.LoadInt32(&client.state))
	assert.Zero(t, atomic.LoadInt64(&client.failureCount))
}

func TestPublishRefresh_CancelledContext(t *testing.T) {
	client := &Client{state: StateOpen}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.PublishRefresh(ctx, "sheet edited")
	assert.ErrorIs(t, err, context.Canceled, "context is checked before the circuit")
}

func TestClient_HalfOpenFailureReopens(t *testing.T) {
	client := &Client{}
	atomic.StoreInt32(&client.state, StateHalfOpen)

	client.recordFailure()

	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Error("a failure while half-open should reopen the circuit")
	}
}

func TestClient_CloseWithoutConnection(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

func TestNewRefreshMessage(t *testing.T) {
	msg := NewRefreshMessage("sheet edited")

	if msg.ID == "" {
		t.Error("NewRefreshMessage() ID should not be empty")
	}
	if msg.Reason != "sheet edited" {
		t.Errorf("NewRefreshMessage() Reason = %q", msg.Reason)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewRefreshMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewRefreshMessage() Timestamp should be recent")
	}

	other := NewRefreshMessage("sheet edited")
	if other.ID == msg.ID {
		t.Error("NewRefreshMessage() should generate distinct IDs")
	}
}

func TestRefreshMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &RefreshMessage{
		ID:        "5b0f7f0e-2d7c-4a51-9d55-6d3f3a9b7f10",
		Reason:    "nightly import",
		Origin:    "importer-1",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := RefreshMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("RefreshMessageFromJSON() error = %v", err)
	}

	if parsed.ID != msg.ID || parsed.Reason != msg.Reason || parsed.Origin != msg.Origin {
		t.Errorf("Parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestRefreshMessageFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"id": `},
		{"wrong type", `{"id": 12}`},
		{"missing id", `{"reason": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RefreshMessageFromJSON([]byte(tt.data)); err == nil {
				t.Error("RefreshMessageFromJSON() should fail")
			}
		})
	}
}
