package logger

// LogAchievementUnlocked records a newly unlocked achievement
func LogAchievementUnlocked(l Logger, achievement, trigger string, unlocked int) {
	l.InfoWithFields("Achievement unlocked", map[string]interface{}{
		"achievement": achievement,
		"trigger":     trigger,
		"unlocked":    unlocked,
	})
}

// LogStorageFailure records a storage error that was recovered locally.
// Read failures are warnings since defaults take over; write failures are
// errors because durability is lost for the session.
func LogStorageFailure(l Logger, op, key string, err error) {
	fields := map[string]interface{}{
		"op":  op,
		"key": key,
	}
	if op == "write" {
		l.WithError(err).ErrorWithFields("Progress storage write failed, keeping in-memory state", fields)
		return
	}
	l.WithError(err).WarnWithFields("Progress storage read failed, using defaults", fields)
}

// LogSessionFlush records a session-time flush
func LogSessionFlush(l Logger, minutes, total int) {
	l.DebugWithFields("Session time flushed", map[string]interface{}{
		"minutes": minutes,
		"total":   total,
	})
}
