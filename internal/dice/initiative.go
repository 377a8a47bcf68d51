package dice

import (
	"math/rand"
	"slices"
)

// InitiativeEntry pairs a combat participant with its initiative roll.
type InitiativeEntry struct {
	Participant string
	Roll        int
}

// RollInitiative ranks combat participants by a seeded d20 roll, highest
// first. Participants are opaque slots; they need not be registered actors.
// Ties are broken by a per-participant tie-break draw from the same seeded
// stream, so the full ranking is deterministic in (participants, seed).
func RollInitiative(participants []string, seed int64) []InitiativeEntry {
	if len(participants) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	type scored struct {
		entry    InitiativeEntry
		tiebreak float64
	}

	ranked := make([]scored, len(participants))
	for i, participant := range participants {
		ranked[i] = scored{
			entry:    InitiativeEntry{Participant: participant, Roll: rng.Intn(20) + 1},
			tiebreak: rng.Float64(),
		}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.entry.Roll > b.entry.Roll:
			return -1
		case a.entry.Roll < b.entry.Roll:
			return 1
		case a.tiebreak > b.tiebreak:
			return -1
		case a.tiebreak < b.tiebreak:
			return 1
		}
		return 0
	})

	out := make([]InitiativeEntry, len(ranked))
	for i, s := range ranked {
		out[i] = s.entry
	}
	return out
}
