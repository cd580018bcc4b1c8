package coord

import "testing"

func TestPlanner_InRangeBeatsOutOfRange(t *testing.T) {
	p := NewPlanner(DefaultWeights())
	cands := []Candidate{
		{AgentID: "far", Distance: 5, InRange: false, Rank: 0},
		{AgentID: "near", Distance: 50, InRange: true, Rank: 3},
	}
	primary, secondary, ok := p.Plan(TrackedAction{}, cands)
	if !ok {
		t.Fatalf("expected a plan")
	}
	if primary.AgentID != "near" {
		t.Fatalf("in-range candidate should win, got %s", primary.AgentID)
	}
	if secondary == nil || secondary.AgentID != "far" {
		t.Fatalf("expected retained secondary 'far', got %+v", secondary)
	}
}

func TestPlanner_RotationDominatesDistance(t *testing.T) {
	p := NewPlanner(DefaultWeights())
	cands := []Candidate{
		{AgentID: "recent", Distance: 1, InRange: true, Rank: 4},
		{AgentID: "due", Distance: 25, InRange: true, Rank: 0},
	}
	primary, _, ok := p.Plan(TrackedAction{}, cands)
	if !ok || primary.AgentID != "due" {
		t.Fatalf("rotation rank should dominate distance, got %s", primary.AgentID)
	}
}

func TestPlanner_BackupPenalty(t *testing.T) {
	p := NewPlanner(DefaultWeights())
	cands := []Candidate{
		{AgentID: "backup-holder", Distance: 10, InRange: true, Rank: 0, Backup: true},
		{AgentID: "primary-holder", Distance: 10, InRange: true, Rank: 0},
	}
	primary, _, ok := p.Plan(TrackedAction{}, cands)
	if !ok || primary.AgentID != "primary-holder" {
		t.Fatalf("primary ability should be preferred over backup, got %s", primary.AgentID)
	}
}

func TestPlanner_DeterministicTie(t *testing.T) {
	p := NewPlanner(DefaultWeights())
	cands := []Candidate{
		{AgentID: "bbb", Distance: 10, InRange: true, Rank: 1},
		{AgentID: "aaa", Distance: 10, InRange: true, Rank: 1},
	}
	for i := 0; i < 10; i++ {
		primary, _, ok := p.Plan(TrackedAction{}, cands)
		if !ok || primary.AgentID != "aaa" {
			t.Fatalf("tie should break by agent id, got %s", primary.AgentID)
		}
	}
}

func TestPlanner_NoCandidates(t *testing.T) {
	p := NewPlanner(Weights{})
	if _, _, ok := p.Plan(TrackedAction{}, nil); ok {
		t.Fatalf("empty candidate set must not produce a plan")
	}
}

func TestPlanner_SingleCandidateNoSecondary(t *testing.T) {
	p := NewPlanner(DefaultWeights())
	primary, secondary, ok := p.Plan(TrackedAction{}, []Candidate{{AgentID: "only", InRange: true}})
	if !ok || primary.AgentID != "only" {
		t.Fatalf("expected the single candidate, got %+v ok=%v", primary, ok)
	}
	if secondary != nil {
		t.Fatalf("single candidate should have no secondary, got %+v", secondary)
	}
}
