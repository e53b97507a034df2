package core

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestEventBusFireOrderAndHandled(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first, second := &struct{ name string }{"first"}, &struct{ name string }{"second"}
	bus.Register(EVENT_CODE_RESIZED, first, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		calls = append(calls, "first")
		return data.Data.U32[0] == 0
	})
	bus.Register(EVENT_CODE_RESIZED, second, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		calls = append(calls, "second")
		return true
	})

	var ctx EventContext
	ctx.Data.U32[0] = 800
	if !bus.Fire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("expected event to be handled")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("unexpected dispatch order %v", calls)
	}

	calls = nil
	bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{})
	if len(calls) != 1 {
		t.Errorf("handled event propagated further: %v", calls)
	}
}

func TestEventBusRegisterDuplicateAndUnregister(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}
	fn := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return true }

	if !bus.Register(EVENT_CODE_KEY_PRESSED, listener, fn) {
		t.Fatal("first registration failed")
	}
	if bus.Register(EVENT_CODE_KEY_PRESSED, listener, fn) {
		t.Error("duplicate registration accepted")
	}
	if !bus.Unregister(EVENT_CODE_KEY_PRESSED, listener) {
		t.Error("unregister failed")
	}
	if bus.Unregister(EVENT_CODE_KEY_PRESSED, listener) {
		t.Error("unregister of missing listener succeeded")
	}
	if bus.Fire(EVENT_CODE_KEY_PRESSED, nil, EventContext{}) {
		t.Error("fire reached removed listener")
	}
}

func TestIdentifierPoolReusesReleasedSlots(t *testing.T) {
	pool := NewIdentifierPool(4)
	a := pool.Acquire("a")
	b := pool.Acquire("b")
	if a != 0 || b != 1 {
		t.Fatalf("got ids %d, %d", a, b)
	}
	if err := pool.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := pool.Release(a); err == nil {
		t.Error("double release should fail")
	}
	if err := pool.Release(42); err == nil {
		t.Error("out of range release should fail")
	}
	if c := pool.Acquire("c"); c != a {
		t.Errorf("expected slot %d to be reused, got %d", a, c)
	}
	if owner, ok := pool.Owner(b); !ok || owner != "b" {
		t.Errorf("owner lookup = %v, %v", owner, ok)
	}
}

func TestMetricsReportsOncePerSecond(t *testing.T) {
	m := NewMetrics()
	reported := 0
	for i := 0; i < 130; i++ {
		if m.Update(1.0 / 60.0) {
			reported++
		}
	}
	if reported != 2 {
		t.Errorf("reported %d times, want 2", reported)
	}
	if m.FPS() < 59 || m.FPS() > 61 {
		t.Errorf("fps = %f", m.FPS())
	}
	if ft := m.FrameTime(); ft < 16 || ft > 17 {
		t.Errorf("frame time = %f", ft)
	}
}

func TestClockElapsed(t *testing.T) {
	now := 10.0
	c := &Clock{now: func() float64 { return now }}
	c.Update()
	if c.Elapsed() != 0 {
		t.Error("stopped clock advanced")
	}
	c.Start()
	now = 12.5
	c.Update()
	if c.Elapsed() != 2.5 {
		t.Errorf("elapsed = %f", c.Elapsed())
	}
	c.Stop()
	now = 20
	c.Update()
	if c.Elapsed() != 2.5 {
		t.Errorf("stopped clock changed elapsed to %f", c.Elapsed())
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cfg := ConfigurationError(errors.New("no device"), "selecting GPU")
	if !IsConfigurationError(cfg) {
		t.Error("configuration mark lost")
	}
	if IsInvariantViolation(cfg) {
		t.Error("configuration error reported as invariant violation")
	}
	wrapped := errors.Wrap(cfg, "startup")
	if !IsConfigurationError(wrapped) {
		t.Error("mark lost through wrapping")
	}
	if !IsConfigurationError(ConfigurationError(nil, "bad value %d", 3)) {
		t.Error("nil cause should still produce a marked error")
	}

	inv := InvariantViolation("frame already started")
	if !IsInvariantViolation(inv) || IsConfigurationError(inv) {
		t.Error("invariant violation misclassified")
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("info"); err != nil {
		t.Fatal(err)
	}
	if err := SetLogLevel("loud"); !IsConfigurationError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	_ = SetLogLevel("debug")
}

func TestInputProcessKeyFiresOnTransitions(t *testing.T) {
	bus := NewEventBus()
	var pressed, released []int32
	listener := &struct{}{}
	bus.Register(EVENT_CODE_KEY_PRESSED, listener, func(_ SystemEventCode, _, _ interface{}, data EventContext) bool {
		pressed = append(pressed, data.Data.I32[0])
		return false
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, listener, func(_ SystemEventCode, _, _ interface{}, data EventContext) bool {
		released = append(released, data.Data.I32[0])
		return false
	})

	in := NewInput(bus)
	in.ProcessKey(KEY_SPACE, true)
	in.ProcessKey(KEY_SPACE, true)
	if !in.IsKeyDown(KEY_SPACE) || in.WasKeyDown(KEY_SPACE) {
		t.Error("key state not tracked for the current tick")
	}
	in.Update()
	if !in.WasKeyDown(KEY_SPACE) {
		t.Error("previous state not copied on update")
	}
	in.ProcessKey(KEY_SPACE, false)
	in.ProcessKey(KEYS_MAX_KEYS, true)

	if len(pressed) != 1 || pressed[0] != int32(KEY_SPACE) {
		t.Errorf("pressed events = %v", pressed)
	}
	if len(released) != 1 || released[0] != int32(KEY_SPACE) {
		t.Errorf("released events = %v", released)
	}
	if !in.IsKeyUp(KEY_SPACE) || !in.IsKeyUp(KEYS_MAX_KEYS) {
		t.Error("expected keys to be up")
	}
}
