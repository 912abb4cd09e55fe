package trace

import (
	"fmt"
	"strings"
)

// Level controls how much is traced.
type Level uint8

const (
	LevelOff Level = iota
	// LevelError records nothing live; a ring tracer still keeps what it
	// is given for a dump.
	LevelError
	LevelPhase
	LevelDetail
	LevelDebug
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts the names printed by String, in any case.
func ParseLevel(s string) (Level, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == want {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected off|error|phase|detail|debug)", s)
}

// deepest is the finest layer each level emits.
var deepest = [...]Layer{
	LevelPhase:  LayerCycle,
	LevelDetail: LayerScope,
	LevelDebug:  LayerNode,
}

// Allows reports whether events of layer are emitted at l.
func (l Level) Allows(layer Layer) bool {
	if l < LevelPhase || int(l) >= len(deepest) {
		return false
	}
	return layer <= deepest[l]
}
