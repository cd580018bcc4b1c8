package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// lockedDirectiveSink is safe for concurrent delivery, as the sink contract
// requires of real implementations.
type lockedDirectiveSink struct {
	mu         sync.Mutex
	directives []Directive
}

func (s *lockedDirectiveSink) DeliverDirective(d Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directives = append(s.directives, d)
	return nil
}

func (s *lockedDirectiveSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.directives)
}

type lockedMovementSink struct {
	mu       sync.Mutex
	requests []MovementRequest
}

func (s *lockedMovementSink) RequestMovement(r MovementRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
	return nil
}

// assertSingleAssignments fails the test if any agent holds more than one
// live assignment in the given snapshot. Safe to call from any goroutine.
func assertSingleAssignments(t *testing.T, assignments []Assignment) {
	t.Helper()
	perAgent := make(map[string]int, len(assignments))
	for _, a := range assignments {
		perAgent[a.AgentID]++
	}
	for id, n := range perAgent {
		if n > 1 {
			t.Errorf("agent %s holds %d live assignments", id, n)
		}
	}
}

// Exercises the facade from several goroutines at once: detections, action
// ends, planning passes, cooldown reports, movement updates and agent churn
// all race against each other while the single-assignment-per-agent
// invariant is checked on every pass.
func TestCoordinator_ConcurrentOperationsKeepSingleAssignment(t *testing.T) {
	ds := &lockedDirectiveSink{}
	ms := &lockedMovementSink{}
	c := New(Config{RotationWindow: time.Second}, ds, ms)
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	const agents = 8
	for i := 0; i < agents; i++ {
		id := fmt.Sprintf("b-%d", i)
		cap := Capability{
			AgentID: id,
			Team:    "blue",
			Primary: interruptAbility("shot-"+id, 50),
		}
		if err := c.AgentJoined(cap, Position{X: float64(i * 3)}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	const iterations = 200
	var wg sync.WaitGroup

	// Detection feed.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			id := fmt.Sprintf("cast-%d", i)
			_ = c.ActionStarted(id, "hostile-"+id, "blue", "", Position{X: float64(i % 40)}, 50*time.Millisecond, PriorityNormal)
		}
	}()

	// Completion feed, trailing the detections.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_ = c.ActionEnded(fmt.Sprintf("cast-%d", i), "completed")
		}
	}()

	// Two planners racing each other.
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if _, err := c.RunPass("blue"); err != nil {
					t.Errorf("RunPass failed: %v", err)
					return
				}
				assertSingleAssignments(t, c.Assignments())
			}
		}()
	}

	// Cooldown reports.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			id := fmt.Sprintf("b-%d", i%agents)
			_ = c.AbilityUsed(id, "shot-"+id, 5*time.Millisecond)
		}
	}()

	// Position updates.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_ = c.AgentMoved(fmt.Sprintf("b-%d", i%agents), Position{X: float64(i % 40)})
		}
	}()

	// One agent churns in and out of the roster.
	wg.Add(1)
	go func() {
		defer wg.Done()
		cap := Capability{AgentID: "b-7", Team: "blue", Primary: interruptAbility("shot-b-7", 50)}
		for i := 0; i < iterations; i++ {
			_ = c.AgentLeft("b-7")
			if err := c.AgentJoined(cap, Position{X: 21}); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
				t.Errorf("rejoin b-7: %v", err)
				return
			}
		}
	}()

	// Alive flag flaps on another agent.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_ = c.SetAgentAlive("b-6", i%2 == 0)
		}
	}()

	wg.Wait()

	assertSingleAssignments(t, c.Assignments())
	if c.State() != StateReady {
		t.Fatalf("coordinator state after stress = %v", c.State())
	}
	if ds.count() == 0 {
		t.Fatal("expected at least one directive to be delivered under load")
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
