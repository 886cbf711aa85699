package mastery

// Level is a coarse band of a mastery score used for display and reports.
type Level string

const (
	LevelEmerging   Level = "emerging"
	LevelDeveloping Level = "developing"
	LevelMastered   Level = "mastered"
)

// Score thresholds between levels.
const (
	WeakThreshold     = 60
	MasteredThreshold = 80
)

// LevelFor maps a score onto a level.
func LevelFor(score int) Level {
	switch {
	case score >= MasteredThreshold:
		return LevelMastered
	case score >= WeakThreshold:
		return LevelDeveloping
	default:
		return LevelEmerging
	}
}

// Label returns a human-readable label.
func (l Level) Label() string {
	switch l {
	case LevelMastered:
		return "Mastered"
	case LevelDeveloping:
		return "Developing"
	default:
		return "Emerging"
	}
}
