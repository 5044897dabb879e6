package progress

import (
	"errors"
	"fmt"

	"guideprogress/pkg/config"
)

// Counter names a record length that achievement rules watch
type Counter string

const (
	CounterSections  Counter = "sections"
	CounterExercises Counter = "exercises"
)

// Match decides how a counter is compared with a rule threshold
type Match string

const (
	// MatchExact fires when the counter reaches the threshold exactly
	MatchExact Match = "exact"
	// MatchAtLeast fires on every mutation at or past the threshold
	MatchAtLeast Match = "at_least"
)

// Built-in achievements
const (
	AchievementFirstSection   = "first-section"
	AchievementCompletionist  = "completionist"
	AchievementFirstExercise  = "first-exercise"
	AchievementHandsOnLearner = "hands-on-learner"
)

// Rule unlocks Achievement when Counter matches Threshold
type Rule struct {
	Counter     Counter
	Threshold   int
	Match       Match
	Achievement string
}

// Matches reports whether a counter value of n satisfies the rule
func (r Rule) Matches(n int) bool {
	switch r.Match {
	case MatchExact:
		return n == r.Threshold
	case MatchAtLeast:
		return n >= r.Threshold
	default:
		return false
	}
}

// DefaultRules returns the built-in achievement table
func DefaultRules() []Rule {
	return []Rule{
		{Counter: CounterSections, Threshold: 1, Match: MatchExact, Achievement: AchievementFirstSection},
		{Counter: CounterSections, Threshold: 6, Match: MatchExact, Achievement: AchievementCompletionist},
		{Counter: CounterExercises, Threshold: 1, Match: MatchExact, Achievement: AchievementFirstExercise},
		{Counter: CounterExercises, Threshold: 10, Match: MatchAtLeast, Achievement: AchievementHandsOnLearner},
	}
}

// ValidateRules checks every rule in the table
func ValidateRules(rules []Rule) error {
	var errs []error
	for i, r := range rules {
		if r.Counter != CounterSections && r.Counter != CounterExercises {
			errs = append(errs, fmt.Errorf("rule %d: unknown counter %q", i, r.Counter))
		}
		if r.Match != MatchExact && r.Match != MatchAtLeast {
			errs = append(errs, fmt.Errorf("rule %d: unknown match %q", i, r.Match))
		}
		if r.Threshold < 1 {
			errs = append(errs, fmt.Errorf("rule %d: threshold must be at least 1", i))
		}
		if r.Achievement == "" {
			errs = append(errs, fmt.Errorf("rule %d: achievement id is required", i))
		}
	}
	return errors.Join(errs...)
}

// RulesFromConfig converts configured rules, falling back to DefaultRules
// when none are configured. An empty match means exact.
func RulesFromConfig(cfg []config.AchievementRule) ([]Rule, error) {
	if len(cfg) == 0 {
		return DefaultRules(), nil
	}

	rules := make([]Rule, 0, len(cfg))
	for _, c := range cfg {
		match := Match(c.Match)
		if match == "" {
			match = MatchExact
		}
		rules = append(rules, Rule{
			Counter:     Counter(c.Counter),
			Threshold:   c.Threshold,
			Match:       match,
			Achievement: c.Achievement,
		})
	}

	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// applyRules unlocks every achievement whose rule on counter matches n
func applyRules(r *Record, rules []Rule, counter Counter, n int) {
	for _, rule := range rules {
		if rule.Counter == counter && rule.Matches(n) {
			unlock(r, rule.Achievement)
		}
	}
}

// unlock appends id to the achievement set if absent
func unlock(r *Record, id string) bool {
	if contains(r.Achievements, id) {
		return false
	}
	r.Achievements = append(r.Achievements, id)
	return true
}
