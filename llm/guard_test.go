package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestGuard(maxFailures int, cooldown time.Duration) (*Guard, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := NewGuard(maxFailures, cooldown)
	g.now = clock.now
	return g, clock
}

func TestGuard_OpensAfterMaxFailures(t *testing.T) {
	g, clock := newTestGuard(2, time.Minute)

	g.RecordFailure()
	if !g.Allow() {
		t.Fatal("guard opened after one failure")
	}
	g.RecordFailure()
	if g.Allow() {
		t.Fatal("guard still closed after two failures")
	}

	clock.t = clock.t.Add(30 * time.Second)
	if g.Allow() {
		t.Fatal("guard closed before cooldown elapsed")
	}
	clock.t = clock.t.Add(31 * time.Second)
	if !g.Allow() {
		t.Fatal("guard still open after cooldown")
	}
}

func TestGuard_SuccessResets(t *testing.T) {
	g, _ := newTestGuard(2, time.Minute)
	g.RecordFailure()
	g.RecordSuccess()
	g.RecordFailure()
	if !g.Allow() {
		t.Fatal("failures not reset by success")
	}
	if !g.DisabledUntil().IsZero() {
		t.Errorf("DisabledUntil = %v", g.DisabledUntil())
	}
}

func TestGuard_ZeroMaxDisables(t *testing.T) {
	g, _ := newTestGuard(0, time.Minute)
	for range 10 {
		g.RecordFailure()
	}
	if !g.Allow() {
		t.Fatal("disabled guard opened")
	}
}

func TestGuard_NilSafe(t *testing.T) {
	var g *Guard
	g.RecordFailure()
	g.RecordSuccess()
	if !g.Allow() {
		t.Fatal("nil guard refused call")
	}
}

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) Chat(context.Context, ChatRequest) (ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return ChatResponse{}, s.errs[i]
	}
	return ChatResponse{Content: "ok"}, nil
}

func TestGuarded(t *testing.T) {
	upstream := &UpstreamError{Status: 502, Message: "bad gateway"}
	next := &scriptedClient{errs: []error{ErrInvalidInput, context.Canceled, upstream, ErrRateLimited}}
	g, clock := newTestGuard(2, time.Minute)
	c := Guarded(next, g)

	for range 4 {
		_, _ = c.Chat(t.Context(), userRequest())
	}

	_, err := c.Chat(t.Context(), userRequest())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if next.calls != 4 {
		t.Errorf("next called %d times while open", next.calls)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	resp, err := c.Chat(t.Context(), userRequest())
	if err != nil || resp.Content != "ok" {
		t.Fatalf("after cooldown: %v %+v", err, resp)
	}
	if !g.DisabledUntil().IsZero() {
		t.Error("success did not close guard")
	}
}
