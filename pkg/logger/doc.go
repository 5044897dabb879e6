// Package logger provides a structured logging interface for guideprogress.
//
// It wraps zerolog with a small field-oriented API:
//
//	log := logger.GetLogger().WithField("session_id", id)
//	log.InfoWithFields("Achievement unlocked", map[string]interface{}{
//	    "achievement": "first-section",
//	})
//
// Components take a Logger as a dependency rather than reaching for the
// global one; TestLogger captures messages so tests can assert on failure
// paths such as storage write errors.
package logger
