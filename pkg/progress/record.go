package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned when a stored value is not a usable record
var ErrMalformedRecord = errors.New("malformed progress record")

// Record is the persisted progress of one learner
type Record struct {
	SectionsVisited    []string `json:"sectionsVisited"`
	ExercisesCompleted []string `json:"exercisesCompleted"`
	TotalTimeSpent     int      `json:"totalTimeSpent"`
	LastVisited        string   `json:"lastVisited"`
	CurrentStreak      int      `json:"currentStreak"` // reserved, never mutated
	Achievements       []string `json:"achievements"`
}

// DefaultRecord returns the empty record a new learner starts with
func DefaultRecord() Record {
	return Record{
		SectionsVisited:    []string{},
		ExercisesCompleted: []string{},
		Achievements:       []string{},
	}
}

// Clone returns a deep copy of r
func (r Record) Clone() Record {
	c := r
	c.SectionsVisited = append(make([]string, 0, len(r.SectionsVisited)), r.SectionsVisited...)
	c.ExercisesCompleted = append(make([]string, 0, len(r.ExercisesCompleted)), r.ExercisesCompleted...)
	c.Achievements = append(make([]string, 0, len(r.Achievements)), r.Achievements...)
	return c
}

// HasVisited reports whether section id has been visited
func (r Record) HasVisited(id string) bool {
	return contains(r.SectionsVisited, id)
}

// HasCompleted reports whether exercise id has been completed
func (r Record) HasCompleted(id string) bool {
	return contains(r.ExercisesCompleted, id)
}

// HasAchievement reports whether achievement id is unlocked
func (r Record) HasAchievement(id string) bool {
	return contains(r.Achievements, id)
}

// Encode serialises the record. Set fields always encode as arrays.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r.Clone())
}

// DecodeRecord parses a stored value. The value must be a JSON object whose
// sectionsVisited member is an array; present fields override defaults and
// absent ones keep them. Anything else yields ErrMalformedRecord and the
// caller is expected to fall back to DefaultRecord.
func DecodeRecord(data []byte) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return DefaultRecord(), fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if fields == nil {
		return DefaultRecord(), fmt.Errorf("%w: not an object", ErrMalformedRecord)
	}

	raw, ok := fields["sectionsVisited"]
	if !ok || !isJSONArray(raw) {
		return DefaultRecord(), fmt.Errorf("%w: sectionsVisited is not an array", ErrMalformedRecord)
	}

	rec := DefaultRecord()
	targets := []struct {
		name  string
		dest  interface{}
		array bool
	}{
		{"sectionsVisited", &rec.SectionsVisited, true},
		{"exercisesCompleted", &rec.ExercisesCompleted, true},
		{"achievements", &rec.Achievements, true},
		{"totalTimeSpent", &rec.TotalTimeSpent, false},
		{"currentStreak", &rec.CurrentStreak, false},
		{"lastVisited", &rec.LastVisited, false},
	}

	for _, target := range targets {
		raw, ok := fields[target.name]
		if !ok {
			continue
		}
		if isJSONNull(raw) || (target.array && !isJSONArray(raw)) {
			return DefaultRecord(), fmt.Errorf("%w: %s has the wrong type", ErrMalformedRecord, target.name)
		}
		if err := json.Unmarshal(raw, target.dest); err != nil {
			return DefaultRecord(), fmt.Errorf("%w: %s: %v", ErrMalformedRecord, target.name, err)
		}
	}

	if rec.TotalTimeSpent < 0 {
		return DefaultRecord(), fmt.Errorf("%w: negative totalTimeSpent", ErrMalformedRecord)
	}

	rec.SectionsVisited = dedupe(rec.SectionsVisited)
	rec.ExercisesCompleted = dedupe(rec.ExercisesCompleted)
	rec.Achievements = dedupe(rec.Achievements)

	return rec, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of every identifier, preserving order
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
