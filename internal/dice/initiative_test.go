package dice

import "testing"

func TestRollInitiative_Deterministic(t *testing.T) {
	participants := []string{"aria", "brom", "cora", "goblin-1", "goblin-2"}

	first := RollInitiative(participants, 99)
	second := RollInitiative(participants, 99)

	if len(first) != len(participants) {
		t.Fatalf("got %d entries, want %d", len(first), len(participants))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", first, second)
		}
	}
}

func TestRollInitiative_AllParticipantsRankedOnce(t *testing.T) {
	participants := []string{"aria", "brom", "cora"}
	order := RollInitiative(participants, 3)

	seen := make(map[string]int)
	for _, entry := range order {
		seen[entry.Participant]++
		if entry.Roll < 1 || entry.Roll > 20 {
			t.Errorf("roll %d for %s out of d20 range", entry.Roll, entry.Participant)
		}
	}
	for _, p := range participants {
		if seen[p] != 1 {
			t.Errorf("participant %s appeared %d times, want 1", p, seen[p])
		}
	}
}

func TestRollInitiative_DescendingRolls(t *testing.T) {
	order := RollInitiative([]string{"a", "b", "c", "d", "e", "f", "g", "h"}, 17)
	for i := 1; i < len(order); i++ {
		if order[i].Roll > order[i-1].Roll {
			t.Fatalf("order not descending: %v", order)
		}
	}
}

func TestRollInitiative_Empty(t *testing.T) {
	if got := RollInitiative(nil, 1); got != nil {
		t.Errorf("RollInitiative(nil) = %v, want nil", got)
	}
}

func TestRollInitiative_SeedChangesOrder(t *testing.T) {
	participants := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	for seed := int64(1); seed < 50; seed++ {
		a := RollInitiative(participants, 0)
		b := RollInitiative(participants, seed)
		for i := range a {
			if a[i] != b[i] {
				return
			}
		}
	}
	t.Fatal("orders identical across many seeds")
}
