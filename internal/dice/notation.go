package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidNotation indicates text that does not parse as dice notation.
var ErrInvalidNotation = errors.New("invalid dice notation")

// Bounds on a single notation roll.
const (
	maxNotationDice  = 100
	minNotationSides = 2
	maxNotationSides = 1000
)

// Advantage selects how many times a notation roll is made and which result
// is kept.
type Advantage int

const (
	// AdvantageNone keeps the single roll.
	AdvantageNone Advantage = iota
	// AdvantageKeepHigh rolls twice and keeps the higher total.
	AdvantageKeepHigh
	// AdvantageKeepLow rolls twice and keeps the lower total.
	AdvantageKeepLow
)

// Notation is a parsed tabletop dice expression such as "2d6+3" or
// "1d20 advantage".
type Notation struct {
	Count     int
	Sides     int
	Modifier  int
	Advantage Advantage
}

var notationPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?(?:\s+(advantage|disadvantage))?$`)

// ParseNotation parses expressions of the form "NdS", "NdS±M", and
// "NdS advantage|disadvantage". Parsing is case-insensitive.
func ParseNotation(text string) (Notation, error) {
	match := notationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if match == nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, text)
	}

	count, err := strconv.Atoi(match[1])
	if err != nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, text)
	}
	sides, err := strconv.Atoi(match[2])
	if err != nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, text)
	}
	modifier := 0
	if match[3] != "" {
		modifier, err = strconv.Atoi(match[3])
		if err != nil {
			return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, text)
		}
	}

	if count < 1 || count > maxNotationDice {
		return Notation{}, fmt.Errorf("%w: %d dice (must be 1-%d)", ErrInvalidNotation, count, maxNotationDice)
	}
	if sides < minNotationSides || sides > maxNotationSides {
		return Notation{}, fmt.Errorf("%w: d%d (must be d%d-d%d)", ErrInvalidNotation, sides, minNotationSides, maxNotationSides)
	}

	notation := Notation{Count: count, Sides: sides, Modifier: modifier}
	switch match[4] {
	case "advantage":
		notation.Advantage = AdvantageKeepHigh
	case "disadvantage":
		notation.Advantage = AdvantageKeepLow
	}
	return notation, nil
}

// NotationResult is the outcome of rolling a parsed notation.
type NotationResult struct {
	Notation Notation
	Text     string // the normalized expression that was rolled
	Kept     []int
	Dropped  []int // the discarded roll for advantage/disadvantage, nil otherwise
	Total    int
}

// RollNotation parses and rolls a dice expression with a seeded source.
func RollNotation(text string, seed int64) (NotationResult, error) {
	notation, err := ParseNotation(text)
	if err != nil {
		return NotationResult{}, err
	}

	rng := rand.New(rand.NewSource(seed))
	spec := []Spec{{Sides: notation.Sides, Count: notation.Count}}

	first, err := RollWithRNG(rng, spec)
	if err != nil {
		return NotationResult{}, err
	}
	kept := first.Rolls[0].Results
	var dropped []int

	if notation.Advantage != AdvantageNone {
		second, err := RollWithRNG(rng, spec)
		if err != nil {
			return NotationResult{}, err
		}
		other := second.Rolls[0].Results

		keepFirst := first.Total >= second.Total
		if notation.Advantage == AdvantageKeepLow {
			keepFirst = first.Total <= second.Total
		}
		if keepFirst {
			dropped = other
		} else {
			kept, dropped = other, kept
		}
	}

	total := notation.Modifier
	for _, value := range kept {
		total += value
	}

	return NotationResult{
		Notation: notation,
		Text:     strings.ToLower(strings.TrimSpace(text)),
		Kept:     kept,
		Dropped:  dropped,
		Total:    total,
	}, nil
}

// String formats the result in the conventional transcript form, e.g.
// "2d6+3: [4 5] +3 = 12" or "1d20 advantage: rolled [3] and [17], kept [17] = 17".
func (r NotationResult) String() string {
	var b strings.Builder
	b.WriteString(r.Text)
	b.WriteString(": ")

	if r.Notation.Advantage != AdvantageNone {
		fmt.Fprintf(&b, "rolled %v and %v, kept %v", r.Kept, r.Dropped, r.Kept)
	} else {
		fmt.Fprintf(&b, "%v", r.Kept)
	}
	if r.Notation.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", r.Notation.Modifier)
	}
	fmt.Fprintf(&b, " = %d", r.Total)
	return b.String()
}

// FindNotation scans free text for the first embedded dice expression, such
// as a responder writing "I roll 1d20+5 to climb". It returns the matched
// expression and whether one was found.
func FindNotation(text string) (string, bool) {
	match := embeddedPattern.FindString(strings.ToLower(text))
	if match == "" {
		return "", false
	}
	return strings.TrimSpace(match), true
}

var embeddedPattern = regexp.MustCompile(`\b\d+d\d+([+-]\d+)?(\s+(advantage|disadvantage))?\b`)
