package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/service"
)

type fakeChannel struct {
	name       string
	configured bool
	err        error
	panics     bool
	sent       int
}

func (c *fakeChannel) Name() string     { return c.name }
func (c *fakeChannel) Configured() bool { return c.configured }
func (c *fakeChannel) Send(ctx context.Context, event service.FlaggedEvent) error {
	c.sent++
	if c.panics {
		panic("channel blew up")
	}
	return c.err
}

func testEvent() service.FlaggedEvent {
	return service.FlaggedEvent{
		RequestID:      42,
		ContentType:    entity.ContentTypeText,
		Classification: "inappropriate",
		Confidence:     0.95,
		Reasoning:      "Flagged keywords found: violence",
	}
}

func TestDispatchOutcomePerChannel(t *testing.T) {
	ok := &fakeChannel{name: "ok", configured: true}
	broken := &fakeChannel{name: "broken", configured: true, err: errors.New("unreachable")}
	unset := &fakeChannel{name: "unset", configured: false}

	d := NewDispatcherWithChannels(nil, ok, broken, unset)
	outcomes := d.Dispatch(context.Background(), testEvent())

	if len(outcomes) != 3 {
		t.Fatalf("expected one outcome per channel, got %v", outcomes)
	}
	if outcomes["ok"] != entity.OutcomeSent {
		t.Fatalf("ok channel: got %s, want sent", outcomes["ok"])
	}
	if outcomes["broken"] != entity.OutcomeFailed {
		t.Fatalf("broken channel: got %s, want failed", outcomes["broken"])
	}
	if outcomes["unset"] != entity.OutcomeSkipped {
		t.Fatalf("unset channel: got %s, want skipped", outcomes["unset"])
	}
}

func TestDispatchFailureIsolation(t *testing.T) {
	ok := &fakeChannel{name: "ok", configured: true}
	broken := &fakeChannel{name: "broken", configured: true, err: errors.New("down")}

	d := NewDispatcherWithChannels(nil, broken, ok)
	outcomes := d.Dispatch(context.Background(), testEvent())

	if ok.sent != 1 {
		t.Fatalf("healthy channel must still deliver, sent=%d", ok.sent)
	}
	if outcomes["ok"] != entity.OutcomeSent {
		t.Fatalf("healthy channel outcome: got %s, want sent", outcomes["ok"])
	}
}

func TestDispatchPanicBecomesFailed(t *testing.T) {
	wild := &fakeChannel{name: "wild", configured: true, panics: true}

	d := NewDispatcherWithChannels(nil, wild)
	outcomes := d.Dispatch(context.Background(), testEvent())

	if outcomes["wild"] != entity.OutcomeFailed {
		t.Fatalf("panicking channel: got %s, want failed", outcomes["wild"])
	}
}

func TestDispatchSkippedChannelsNeverCalled(t *testing.T) {
	unset := &fakeChannel{name: "unset", configured: false}

	d := NewDispatcherWithChannels(nil, unset)
	d.Dispatch(context.Background(), testEvent())

	if unset.sent != 0 {
		t.Fatalf("unconfigured channel must not be called, sent=%d", unset.sent)
	}
}
