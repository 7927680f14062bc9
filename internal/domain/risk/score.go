// Package risk computes the read-only risk overview signal. It is an
// aggregate over device and action counts; it gates nothing.
package risk

type Level string

const (
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
)

// Counts is the raw aggregate the overview is computed from.
type Counts struct {
	ExpiredDevices     int
	StaleActiveDevices int
	PendingActions     int
	ConflictActions    int
	FailedActions      int
}

type Overview struct {
	Counts Counts
	Score  int
	Level  Level
}

func Assess(c Counts) Overview {
	score := 0
	if c.ExpiredDevices > 0 {
		score += 3
	}
	if c.FailedActions > 0 {
		score += 3
	}
	if c.ConflictActions > 0 {
		score += 2
	}
	if c.StaleActiveDevices > 0 {
		score++
	}
	switch {
	case c.PendingActions > 20:
		score += 2
	case c.PendingActions > 5:
		score++
	}

	return Overview{
		Counts: c,
		Score:  score,
		Level:  bucket(score),
	}
}

func bucket(score int) Level {
	switch {
	case score >= 5:
		return LevelHigh
	case score >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}
