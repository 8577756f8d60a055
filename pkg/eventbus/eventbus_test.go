package eventbus

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ntsowef/eff-membership-system-sub020/pkg/logging"
)

type stageEvent struct {
	stage   string
	percent int
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var got *stageEvent
	publisher.Subscribe(func(e *stageEvent) {
		got = e
	})
	publisher.Publish(&stageEvent{stage: "verification", percent: 40})
	if got == nil {
		t.Fatal("subscriber should be called")
	}
	if got.stage != "verification" || got.percent != 40 {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestPublisher_Publish_NoMatch(t *testing.T) {
	type otherEvent struct{}
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	publisher.Subscribe(func(e *stageEvent) {
		t.Error("should not be called")
	})
	publisher.Publish(&otherEvent{})
}

func TestPublisher_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))
	called := false
	publisher.Subscribe(func(e *stageEvent) {
		panic("boom")
	})
	publisher.Subscribe(func(e *stageEvent) {
		called = true
	})
	publisher.Publish(&stageEvent{stage: "persistence", percent: 80})
	if !called {
		t.Error("second subscriber should run despite first panicking")
	}
}

func TestMatchSignature(t *testing.T) {
	type a struct{}
	type b struct{}
	if !MatchSignature(func(e *a) {}, []interface{}{&a{}}) {
		t.Error("expected true")
	}
	if MatchSignature(func(e *a) {}, []interface{}{&b{}}) {
		t.Error("expected false")
	}
	if MatchSignature(func(e *a, x int) {}, []interface{}{&a{}}) {
		t.Error("expected false for arity mismatch")
	}
	if MatchSignature(42, []interface{}{&a{}}) {
		t.Error("expected false for non-func handler")
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))
	handler := func(e *stageEvent) {
		t.Error("should not be called after unsubscribe")
	}
	publisher.Subscribe(handler)
	if publisher.SubscribersCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", publisher.SubscribersCount())
	}
	publisher.Unsubscribe(handler)
	if publisher.SubscribersCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", publisher.SubscribersCount())
	}
	publisher.Publish(&stageEvent{})
}
