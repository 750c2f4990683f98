package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name   string
	events *[]string
	failUp bool
	failDn bool
}

func (s recordingService) Name() string { return s.name }

func (s recordingService) Start(ctx context.Context) error {
	if s.failUp {
		return errors.New("start failed")
	}
	*s.events = append(*s.events, "start:"+s.name)
	return nil
}

func (s recordingService) Stop(ctx context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	if s.failDn {
		return errors.New("stop failed")
	}
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var events []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(recordingService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q (all: %v)", i, events[i], want[i], events)
		}
	}
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager()
	_ = m.Register(recordingService{name: "a", events: &events})
	_ = m.Register(recordingService{name: "b", events: &events, failUp: true})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if len(events) != 2 || events[1] != "stop:a" {
		t.Fatalf("expected rollback stop of a, got %v", events)
	}
}

func TestManagerRejectsDuplicates(t *testing.T) {
	var events []string
	m := NewManager()
	if err := m.Register(recordingService{name: "a", events: &events}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(recordingService{name: "a", events: &events}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestManagerStopCollectsErrors(t *testing.T) {
	var events []string
	m := NewManager()
	_ = m.Register(recordingService{name: "a", events: &events, failDn: true})
	_ = m.Register(recordingService{name: "b", events: &events})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err == nil {
		t.Fatal("expected stop error")
	}
	if len(events) != 4 {
		t.Fatalf("both services must be stopped despite the error: %v", events)
	}
}
