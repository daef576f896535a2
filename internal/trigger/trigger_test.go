package trigger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messagePattern = "conversations/{conversationId}/messages/{messageId}"

func TestParsePattern(t *testing.T) {
	valid := []string{messagePattern, "/conversations/{id}/", "status"}
	for _, raw := range valid {
		_, err := ParsePattern(raw)
		assert.NoError(t, err, raw)
	}

	invalid := []string{"", "/", "a//b", "a/{}/b", "a/{x}/{x}", "a/b{c}"}
	for _, raw := range invalid {
		_, err := ParsePattern(raw)
		assert.ErrorIs(t, err, ErrInvalidPattern, raw)
	}
}

func TestPatternMatch(t *testing.T) {
	p := MustParsePattern(messagePattern)

	tests := []struct {
		name   string
		path   string
		ok     bool
		params map[string]string
	}{
		{
			name:   "exact",
			path:   "conversations/c1/messages/m1",
			ok:     true,
			params: map[string]string{"conversationId": "c1", "messageId": "m1"},
		},
		{
			name:   "leading slash",
			path:   "/conversations/c2/messages/m2",
			ok:     true,
			params: map[string]string{"conversationId": "c2", "messageId": "m2"},
		},
		{name: "collection only", path: "conversations/c1/messages"},
		{name: "wrong literal", path: "chats/c1/messages/m1"},
		{name: "too deep", path: "conversations/c1/messages/m1/text"},
		{name: "empty param", path: "conversations//messages/m1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, ok := p.Match(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.params, params)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	noop := func(context.Context, Event) error { return nil }

	assert.Error(t, d.Register(Trigger{Pattern: messagePattern, Handler: noop}))
	assert.Error(t, d.Register(Trigger{Name: "t", Pattern: messagePattern}))
	assert.ErrorIs(t, d.Register(Trigger{Name: "t", Pattern: "a//b", Handler: noop}), ErrInvalidPattern)

	require.NoError(t, d.Register(Trigger{Name: "t", Pattern: messagePattern, Handler: noop}))
	assert.ErrorIs(t, d.Register(Trigger{Name: "t", Pattern: messagePattern, Handler: noop}), ErrDuplicate)
}

func TestDispatchRunsMatchingTriggers(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	var (
		mu   sync.Mutex
		seen []Event
	)
	record := func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
		return nil
	}
	var other atomic.Int32

	require.NoError(t, d.Register(Trigger{Name: "messages", Kind: KindCreated, Pattern: messagePattern, Handler: record}))
	require.NoError(t, d.Register(Trigger{Name: "profiles", Kind: KindCreated, Pattern: "profiles/{uid}", Handler: func(context.Context, Event) error {
		other.Add(1)
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Event{Path: "conversations/c1/messages/m1", Data: []byte(`{"text":"hi"}`)})
	cancel()
	d.Wait()

	require.Len(t, seen, 1)
	assert.NotEmpty(t, seen[0].ID)
	assert.Equal(t, KindCreated, seen[0].Kind)
	assert.False(t, seen[0].Time.IsZero())
	assert.Equal(t, map[string]string{"conversationId": "c1", "messageId": "m1"}, seen[0].Params)
	assert.Zero(t, other.Load())
}

func TestDispatchSwallowsHandlerErrors(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	var calls atomic.Int32
	require.NoError(t, d.Register(Trigger{Name: "fail", Pattern: messagePattern, Handler: func(context.Context, Event) error {
		calls.Add(1)
		return errors.New("store unavailable")
	}}))

	d.Dispatch(context.Background(), Event{Path: "conversations/c1/messages/m1"})
	d.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestDeliver(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	storeErr := errors.New("write failed")

	var got Event
	require.NoError(t, d.Register(Trigger{Name: "ok", Pattern: messagePattern, Handler: func(_ context.Context, e Event) error {
		got = e
		return nil
	}}))
	require.NoError(t, d.Register(Trigger{Name: "broken", Pattern: messagePattern, Handler: func(context.Context, Event) error {
		return storeErr
	}}))

	ctx := context.Background()

	require.NoError(t, d.Deliver(ctx, "ok", Event{Path: "conversations/c9/messages/m9"}))
	assert.Equal(t, "c9", got.Params["conversationId"])

	assert.ErrorIs(t, d.Deliver(ctx, "broken", Event{Path: "conversations/c9/messages/m9"}), storeErr)
	assert.ErrorIs(t, d.Deliver(ctx, "missing", Event{Path: "conversations/c9/messages/m9"}), ErrTriggerNotFound)
	assert.ErrorIs(t, d.Deliver(ctx, "ok", Event{Path: "profiles/u1"}), ErrPathMismatch)
	assert.ErrorIs(t, d.Deliver(ctx, "ok", Event{Kind: "deleted", Path: "conversations/c9/messages/m9"}), ErrPathMismatch)
}
