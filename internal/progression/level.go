package progression

import "math"

// LevelForXp maps cumulative XP to a level: floor(sqrt(xp/100)) + 1.
// Level 1 starts at 0 XP, level 2 at 100, level 3 at 400, and so on.
func LevelForXp(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Sqrt(float64(xp)/100)) + 1
}

// XpFloor returns the cumulative XP at which the given level starts.
func XpFloor(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * (level - 1) * 100
}

// XpCeiling returns the cumulative XP at which the next level starts.
func XpCeiling(level int) int {
	return XpFloor(level + 1)
}

// ProgressPercent returns how far into the current level the given XP is,
// as a percentage in [0, 100).
func ProgressPercent(xp int) float64 {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXp(xp)
	floor := XpFloor(level)
	ceiling := XpCeiling(level)
	return float64(xp-floor) / float64(ceiling-floor) * 100
}

// XpInCurrentLevel returns the XP earned since the start of the current level.
func XpInCurrentLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp - XpFloor(LevelForXp(xp))
}

// XpNeededForNext returns the XP still missing until the next level.
func XpNeededForNext(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return XpCeiling(LevelForXp(xp)) - xp
}

// BadgeForLevel is the cosmetic title tier for a level.
func BadgeForLevel(level int) string {
	switch {
	case level >= 50:
		return "Legend"
	case level >= 40:
		return "Master"
	case level >= 30:
		return "Expert"
	case level >= 20:
		return "Advanced"
	case level >= 10:
		return "Intermediate"
	default:
		return "Beginner"
	}
}
