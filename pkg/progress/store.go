package progress

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "guideprogress/pkg/errors"
	"guideprogress/pkg/logger"
	"guideprogress/pkg/storage"
)

const (
	// DefaultStorageKey is the key the record is persisted under
	DefaultStorageKey = "guide-progress"

	// DefaultTotalSections is the size of the guide catalog
	DefaultTotalSections = 6
)

// Options configures a Store. Zero values select defaults.
type Options struct {
	Key           string
	TotalSections int
	Rules         []Rule
	Logger        logger.Logger
	Now           func() time.Time

	// OnUnlock is called once for every newly unlocked achievement
	OnUnlock func(achievement string)

	// OnStorageError receives read and write failures. They never
	// propagate to callers of the store.
	OnStorageError func(err error)
}

// Store owns one learner's progress record and keeps the storage copy in
// sync with it. It is safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	kv           storage.Store
	record       Record
	sessionStart time.Time

	key            string
	totalSections  int
	rules          []Rule
	now            func() time.Time
	onUnlock       func(string)
	onStorageError func(error)
	sessionID      string
	log            logger.Logger
}

// NewStore creates a store over kv and rehydrates the record from it.
// Storage problems fall back to the default record; only an invalid rule
// table is an error.
func NewStore(kv storage.Store, opts Options) (*Store, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid achievement rules: %w", err)
	}

	if kv == nil {
		kv = storage.NewMemoryStore()
	}

	s := &Store{
		kv:             kv,
		key:            opts.Key,
		totalSections:  opts.TotalSections,
		rules:          append([]Rule(nil), rules...),
		now:            opts.Now,
		onUnlock:       opts.OnUnlock,
		onStorageError: opts.OnStorageError,
		sessionID:      uuid.NewString(),
		log:            opts.Logger,
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.totalSections == 0 {
		s.totalSections = DefaultTotalSections
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.NewNopLogger()
	}
	s.log = s.log.WithFields(map[string]interface{}{
		"component":  "progress",
		"session_id": s.sessionID,
	})

	s.record = s.restore()
	s.sessionStart = s.now()

	return s, nil
}

// restore reads the persisted record, falling back to defaults
func (s *Store) restore() Record {
	raw, found, err := s.kv.Get(s.key)
	if err != nil {
		wrapped := apperrors.New(apperrors.ErrorTypeStorageRead, "restore", s.key, err)
		logger.LogStorageFailure(s.log, "read", s.key, wrapped)
		s.reportStorageError(wrapped)
		return DefaultRecord()
	}
	if !found {
		s.log.Debug("No saved progress, starting fresh")
		return DefaultRecord()
	}

	rec, err := DecodeRecord([]byte(raw))
	if err != nil {
		wrapped := apperrors.New(apperrors.ErrorTypeDecode, "restore", s.key, err)
		logger.LogStorageFailure(s.log, "read", s.key, wrapped)
		s.reportStorageError(wrapped)
		return DefaultRecord()
	}

	s.log.DebugWithFields("Progress restored", map[string]interface{}{
		"sections":     len(rec.SectionsVisited),
		"exercises":    len(rec.ExercisesCompleted),
		"achievements": len(rec.Achievements),
	})
	return rec
}

// MarkSectionVisited records a visit to section id
func (s *Store) MarkSectionVisited(id string) Record {
	return s.mutate("mark_section_visited", func(r *Record) bool {
		if r.HasVisited(id) {
			return false
		}
		r.SectionsVisited = append(r.SectionsVisited, id)
		r.LastVisited = id
		applyRules(r, s.rules, CounterSections, len(r.SectionsVisited))
		return true
	})
}

// MarkExerciseCompleted records completion of exercise id
func (s *Store) MarkExerciseCompleted(id string) Record {
	return s.mutate("mark_exercise_completed", func(r *Record) bool {
		if r.HasCompleted(id) {
			return false
		}
		r.ExercisesCompleted = append(r.ExercisesCompleted, id)
		applyRules(r, s.rules, CounterExercises, len(r.ExercisesCompleted))
		return true
	})
}

// UpdateTimeSpent adds minutes to the total. Negative deltas are ignored and
// the total saturates at math.MaxInt.
func (s *Store) UpdateTimeSpent(minutes int) Record {
	if minutes < 0 {
		s.log.WarnWithFields("Ignoring negative time delta", map[string]interface{}{
			"minutes": minutes,
		})
		return s.Snapshot()
	}
	return s.mutate("update_time_spent", func(r *Record) bool {
		if minutes == 0 || r.TotalTimeSpent == math.MaxInt {
			return false
		}
		if minutes > math.MaxInt-r.TotalTimeSpent {
			s.log.WarnWithFields("Time total saturated", map[string]interface{}{
				"minutes": minutes,
				"total":   r.TotalTimeSpent,
			})
			r.TotalTimeSpent = math.MaxInt
			return true
		}
		r.TotalTimeSpent += minutes
		return true
	})
}

// AddAchievement unlocks id directly
func (s *Store) AddAchievement(id string) Record {
	return s.mutate("add_achievement", func(r *Record) bool {
		return unlock(r, id)
	})
}

// Reset discards all progress and persists the empty record
func (s *Store) Reset() Record {
	return s.mutate("reset", func(r *Record) bool {
		*r = DefaultRecord()
		return true
	})
}

// Snapshot returns a copy of the current record
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// CompletionPercentage returns the share of the catalog visited, 0-100
func (s *Store) CompletionPercentage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CompletionPercentage(s.record, s.totalSections)
}

// FlushSession adds the whole minutes elapsed since the store was created
// or last flushed. The remainder carries over to the next flush.
func (s *Store) FlushSession() int {
	s.mu.Lock()
	minutes := int(s.now().Sub(s.sessionStart) / time.Minute)
	if minutes <= 0 {
		s.mu.Unlock()
		return 0
	}
	s.sessionStart = s.sessionStart.Add(time.Duration(minutes) * time.Minute)
	s.mu.Unlock()

	rec := s.UpdateTimeSpent(minutes)
	logger.LogSessionFlush(s.log, minutes, rec.TotalTimeSpent)
	return minutes
}

// Key returns the storage key the record is persisted under
func (s *Store) Key() string { return s.key }

// TotalSections returns the catalog size percentages are computed against
func (s *Store) TotalSections() int { return s.totalSections }

// SessionID identifies this store instance in logs
func (s *Store) SessionID() string { return s.sessionID }

// mutate applies fn to a copy of the record. When fn reports a change the
// copy replaces the record and is persisted. Callbacks run after the lock
// is released so they may call back into the store.
func (s *Store) mutate(op string, fn func(r *Record) bool) Record {
	s.mu.Lock()
	prev := s.record
	next := prev.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return prev.Clone()
	}
	s.record = next
	writeErr := s.persistLocked(op)
	snapshot := next.Clone()
	s.mu.Unlock()

	// achievements are append-only, so anything past the old length is new
	if len(snapshot.Achievements) > len(prev.Achievements) {
		for _, id := range snapshot.Achievements[len(prev.Achievements):] {
			logger.LogAchievementUnlocked(s.log, id, op, len(snapshot.Achievements))
			if s.onUnlock != nil {
				s.onUnlock(id)
			}
		}
	}
	if writeErr != nil {
		s.reportStorageError(writeErr)
	}

	return snapshot
}

// persistLocked writes the full record under the storage key
func (s *Store) persistLocked(op string) error {
	data, err := s.record.Encode()
	if err == nil {
		err = s.kv.Set(s.key, string(data))
	}
	if err != nil {
		wrapped := apperrors.New(apperrors.ErrorTypeStorageWrite, op, s.key, err)
		logger.LogStorageFailure(s.log, "write", s.key, wrapped)
		return wrapped
	}

	s.log.DebugWithFields("Progress saved", map[string]interface{}{
		"op":    op,
		"bytes": len(data),
	})
	return nil
}

func (s *Store) reportStorageError(err error) {
	if s.onStorageError != nil {
		s.onStorageError(err)
	}
}

// CompletionPercentage computes round(100*visited/total) clamped to 0-100
func CompletionPercentage(r Record, totalSections int) int {
	if totalSections <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(len(r.SectionsVisited)) / float64(totalSections)))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
