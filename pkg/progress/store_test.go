package progress

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "guideprogress/pkg/errors"
	"guideprogress/pkg/logger"
	"guideprogress/pkg/storage"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, opts Options) (*Store, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	s, err := NewStore(kv, opts)
	require.NoError(t, err)
	return s, kv
}

func savedRecord(t *testing.T, kv storage.Store, key string) Record {
	t.Helper()
	raw, found, err := kv.Get(key)
	require.NoError(t, err)
	require.True(t, found, "nothing saved under %q", key)
	rec, err := DecodeRecord([]byte(raw))
	require.NoError(t, err)
	return rec
}

func TestNewStoreStartsEmpty(t *testing.T) {
	s, kv := newTestStore(t, Options{})

	assert.Equal(t, DefaultRecord(), s.Snapshot())
	assert.Equal(t, 0, s.CompletionPercentage())
	assert.Equal(t, DefaultStorageKey, s.Key())
	assert.Equal(t, DefaultTotalSections, s.TotalSections())
	assert.NotEmpty(t, s.SessionID())
	assert.Zero(t, kv.Writes(), "construction must not write")
}

func TestNewStoreNilBackend(t *testing.T) {
	s, err := NewStore(nil, Options{})
	require.NoError(t, err)

	rec := s.MarkSectionVisited("intro")
	assert.Equal(t, []string{"intro"}, rec.SectionsVisited)
}

func TestNewStoreRejectsInvalidRules(t *testing.T) {
	_, err := NewStore(storage.NewMemoryStore(), Options{
		Rules: []Rule{{Counter: "streak", Threshold: 1, Match: MatchExact, Achievement: "x"}},
	})
	assert.Error(t, err)
}

func TestNewStoreRestoresSavedRecord(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(DefaultStorageKey,
		`{"sectionsVisited":["intro","setup","basics"],"exercisesCompleted":["ex-1"],"totalTimeSpent":30,"lastVisited":"basics","currentStreak":0,"achievements":["first-section","first-exercise"]}`))

	s, err := NewStore(kv, Options{})
	require.NoError(t, err)

	rec := s.Snapshot()
	assert.Equal(t, []string{"intro", "setup", "basics"}, rec.SectionsVisited)
	assert.Equal(t, 30, rec.TotalTimeSpent)
	assert.Equal(t, "basics", rec.LastVisited)
	assert.Equal(t, 50, s.CompletionPercentage())
}

func TestNewStoreMalformedRecordFallsBack(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(DefaultStorageKey, `{"sectionsVisited":"not-an-array"}`))

	tl := logger.NewTestLogger()
	var reported []error
	s, err := NewStore(kv, Options{
		Logger:         tl,
		OnStorageError: func(err error) { reported = append(reported, err) },
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultRecord(), s.Snapshot())
	require.Len(t, reported, 1)
	assert.Equal(t, apperrors.ErrorTypeDecode, apperrors.TypeOf(reported[0]))
	assert.ErrorIs(t, reported[0], ErrMalformedRecord)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}

func TestNewStoreReadFailureFallsBack(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.GetError = errors.New("disk on fire")

	tl := logger.NewTestLogger()
	var reported []error
	s, err := NewStore(kv, Options{
		Logger:         tl,
		OnStorageError: func(err error) { reported = append(reported, err) },
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultRecord(), s.Snapshot())
	require.Len(t, reported, 1)
	assert.Equal(t, apperrors.ErrorTypeStorageRead, apperrors.TypeOf(reported[0]))
	assert.True(t, tl.HasMessage("Progress storage read failed, using defaults"))
}

func TestMarkSectionVisitedIsIdempotent(t *testing.T) {
	s, kv := newTestStore(t, Options{})

	s.MarkSectionVisited("intro")
	writes := kv.Writes()
	rec := s.MarkSectionVisited("intro")

	assert.Equal(t, []string{"intro"}, rec.SectionsVisited)
	assert.Equal(t, writes, kv.Writes(), "a repeated visit must not write")
}

func TestMarkSectionVisitedUpdatesLastVisited(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	s.MarkSectionVisited("intro")
	s.MarkSectionVisited("setup")
	rec := s.MarkSectionVisited("intro")

	assert.Equal(t, "setup", rec.LastVisited, "revisits leave lastVisited alone")
	assert.Equal(t, []string{"intro", "setup"}, rec.SectionsVisited)
}

func TestFirstSectionAchievement(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	rec := s.MarkSectionVisited("intro")
	assert.Equal(t, []string{AchievementFirstSection}, rec.Achievements)

	rec = s.MarkSectionVisited("setup")
	assert.Equal(t, []string{AchievementFirstSection}, rec.Achievements)
}

func TestCompletionistAfterEverySection(t *testing.T) {
	s, kv := newTestStore(t, Options{})

	for i := 1; i <= 6; i++ {
		s.MarkSectionVisited(fmt.Sprintf("section-%d", i))
	}

	rec := s.Snapshot()
	assert.Equal(t, 100, s.CompletionPercentage())
	assert.Equal(t, []string{AchievementFirstSection, AchievementCompletionist}, rec.Achievements)
	assert.Equal(t, rec, savedRecord(t, kv, DefaultStorageKey))
}

func TestCompletionistOnlyAtExactCount(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(DefaultStorageKey,
		`{"sectionsVisited":["1","2","3","4","5","6"],"achievements":["first-section"]}`))
	s, err := NewStore(kv, Options{})
	require.NoError(t, err)

	rec := s.MarkSectionVisited("7")
	assert.NotContains(t, rec.Achievements, AchievementCompletionist)
	assert.Equal(t, 100, s.CompletionPercentage())
}

func TestExerciseAchievements(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	rec := s.MarkExerciseCompleted("ex-1")
	assert.Equal(t, []string{AchievementFirstExercise}, rec.Achievements)

	for i := 2; i <= 9; i++ {
		rec = s.MarkExerciseCompleted(fmt.Sprintf("ex-%d", i))
	}
	assert.NotContains(t, rec.Achievements, AchievementHandsOnLearner)

	rec = s.MarkExerciseCompleted("ex-10")
	assert.Equal(t, []string{AchievementFirstExercise, AchievementHandsOnLearner}, rec.Achievements)

	rec = s.MarkExerciseCompleted("ex-11")
	assert.Len(t, rec.Achievements, 2)
}

func TestMarkExerciseCompletedIsIdempotent(t *testing.T) {
	s, kv := newTestStore(t, Options{})

	s.MarkExerciseCompleted("ex-1")
	writes := kv.Writes()
	rec := s.MarkExerciseCompleted("ex-1")

	assert.Equal(t, []string{"ex-1"}, rec.ExercisesCompleted)
	assert.Equal(t, writes, kv.Writes())
}

func TestUpdateTimeSpent(t *testing.T) {
	s, kv := newTestStore(t, Options{})

	s.UpdateTimeSpent(5)
	rec := s.UpdateTimeSpent(3)

	assert.Equal(t, 8, rec.TotalTimeSpent)
	assert.Equal(t, 8, savedRecord(t, kv, DefaultStorageKey).TotalTimeSpent)
}

func TestUpdateTimeSpentIgnoresNonPositive(t *testing.T) {
	tl := logger.NewTestLogger()
	s, kv := newTestStore(t, Options{Logger: tl})

	s.UpdateTimeSpent(4)
	writes := kv.Writes()

	assert.Equal(t, 4, s.UpdateTimeSpent(0).TotalTimeSpent)
	assert.Equal(t, 4, s.UpdateTimeSpent(-10).TotalTimeSpent)
	assert.Equal(t, writes, kv.Writes())
	assert.True(t, tl.HasMessage("Ignoring negative time delta"))
}

func TestUpdateTimeSpentSaturates(t *testing.T) {
	tl := logger.NewTestLogger()
	s, kv := newTestStore(t, Options{Logger: tl})

	s.MarkSectionVisited("intro")
	s.UpdateTimeSpent(math.MaxInt)
	rec := s.UpdateTimeSpent(1)
	assert.Equal(t, math.MaxInt, rec.TotalTimeSpent)
	assert.True(t, tl.HasMessage("Time total saturated"))

	writes := kv.Writes()
	assert.Equal(t, math.MaxInt, s.UpdateTimeSpent(5).TotalTimeSpent)
	assert.Equal(t, writes, kv.Writes())

	restored, err := NewStore(kv, Options{})
	require.NoError(t, err)
	got := restored.Snapshot()
	assert.Equal(t, []string{"intro"}, got.SectionsVisited)
	assert.Equal(t, []string{AchievementFirstSection}, got.Achievements)
	assert.Equal(t, math.MaxInt, got.TotalTimeSpent)
}

func TestAddAchievement(t *testing.T) {
	var unlocked []string
	s, kv := newTestStore(t, Options{OnUnlock: func(id string) { unlocked = append(unlocked, id) }})

	s.AddAchievement("night-owl")
	writes := kv.Writes()
	rec := s.AddAchievement("night-owl")

	assert.Equal(t, []string{"night-owl"}, rec.Achievements)
	assert.Equal(t, []string{"night-owl"}, unlocked)
	assert.Equal(t, writes, kv.Writes())
}

func TestOnUnlockFiresOncePerAchievement(t *testing.T) {
	var unlocked []string
	s, _ := newTestStore(t, Options{OnUnlock: func(id string) { unlocked = append(unlocked, id) }})

	s.MarkSectionVisited("intro")
	s.MarkSectionVisited("intro")
	s.MarkSectionVisited("setup")
	s.MarkExerciseCompleted("ex-1")

	assert.Equal(t, []string{AchievementFirstSection, AchievementFirstExercise}, unlocked)
}

func TestOnUnlockMayCallBackIntoStore(t *testing.T) {
	var s *Store
	var pct int
	s, _ = newTestStore(t, Options{OnUnlock: func(string) { pct = s.CompletionPercentage() }})

	s.MarkSectionVisited("intro")
	assert.Equal(t, 17, pct)
}

func TestUnlockIsLogged(t *testing.T) {
	tl := logger.NewTestLogger()
	s, _ := newTestStore(t, Options{Logger: tl})

	s.MarkSectionVisited("intro")

	infos := tl.GetMessagesByLevel("INFO")
	require.Len(t, infos, 1)
	assert.Equal(t, "Achievement unlocked", infos[0].Message)
	assert.Equal(t, AchievementFirstSection, infos[0].Fields["achievement"])
	assert.Equal(t, "progress", infos[0].Fields["component"])
	assert.Equal(t, s.SessionID(), infos[0].Fields["session_id"])
}

func TestWriteFailureKeepsMemoryState(t *testing.T) {
	tl := logger.NewTestLogger()
	var reported []error
	s, kv := newTestStore(t, Options{
		Logger:         tl,
		OnStorageError: func(err error) { reported = append(reported, err) },
	})
	kv.SetError = errors.New("quota exceeded")

	rec := s.MarkSectionVisited("intro")

	assert.Equal(t, []string{"intro"}, rec.SectionsVisited)
	assert.Equal(t, rec, s.Snapshot())
	require.Len(t, reported, 1)
	assert.Equal(t, apperrors.ErrorTypeStorageWrite, apperrors.TypeOf(reported[0]))
	assert.ErrorContains(t, reported[0], "quota exceeded")

	errs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "quota exceeded")

	// storage comes back; the next write carries the full state
	kv.SetError = nil
	s.MarkSectionVisited("setup")
	assert.Equal(t, []string{"intro", "setup"}, savedRecord(t, kv, DefaultStorageKey).SectionsVisited)
}

func TestCustomKeyAndCatalog(t *testing.T) {
	s, kv := newTestStore(t, Options{Key: "guide-progress.work", TotalSections: 4})

	s.MarkSectionVisited("a")
	assert.Equal(t, 25, s.CompletionPercentage())

	_, found, err := kv.Get(DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"a"}, savedRecord(t, kv, "guide-progress.work").SectionsVisited)
}

func TestCustomRules(t *testing.T) {
	s, _ := newTestStore(t, Options{Rules: []Rule{
		{Counter: CounterSections, Threshold: 2, Match: MatchAtLeast, Achievement: "explorer"},
	}})

	assert.Empty(t, s.MarkSectionVisited("a").Achievements)
	assert.Equal(t, []string{"explorer"}, s.MarkSectionVisited("b").Achievements)
}

func TestReset(t *testing.T) {
	s, kv := newTestStore(t, Options{})
	s.MarkSectionVisited("intro")
	s.UpdateTimeSpent(12)

	rec := s.Reset()

	assert.Equal(t, DefaultRecord(), rec)
	assert.Equal(t, DefaultRecord(), savedRecord(t, kv, DefaultStorageKey))

	// achievements can be earned again after a reset
	assert.Equal(t, []string{AchievementFirstSection}, s.MarkSectionVisited("intro").Achievements)
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	s.MarkSectionVisited("intro")

	rec := s.Snapshot()
	rec.SectionsVisited[0] = "tampered"

	assert.Equal(t, "intro", s.Snapshot().SectionsVisited[0])
}

func TestCompletionPercentage(t *testing.T) {
	sections := func(n int) Record {
		r := DefaultRecord()
		for i := 0; i < n; i++ {
			r.SectionsVisited = append(r.SectionsVisited, fmt.Sprint(i))
		}
		return r
	}

	tests := []struct {
		name    string
		visited int
		total   int
		want    int
	}{
		{"none", 0, 6, 0},
		{"one of six rounds down", 1, 6, 17},
		{"half", 3, 6, 50},
		{"five of six", 5, 6, 83},
		{"all", 6, 6, 100},
		{"over the catalog clamps", 9, 6, 100},
		{"zero catalog", 3, 0, 0},
		{"negative catalog", 3, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionPercentage(sections(tt.visited), tt.total))
		})
	}
}

func TestFlushSession(t *testing.T) {
	clock := newFakeClock()
	s, kv := newTestStore(t, Options{Now: clock.Now})

	assert.Equal(t, 0, s.FlushSession())
	assert.Zero(t, kv.Writes())

	clock.Advance(5*time.Minute + 40*time.Second)
	assert.Equal(t, 5, s.FlushSession())
	assert.Equal(t, 5, s.Snapshot().TotalTimeSpent)

	// the 40s remainder carries over
	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, s.FlushSession())
	assert.Equal(t, 6, s.Snapshot().TotalTimeSpent)

	assert.Equal(t, 0, s.FlushSession())
	assert.Equal(t, 6, savedRecord(t, kv, DefaultStorageKey).TotalTimeSpent)
}

func TestFlushSessionAddsToRestoredTotal(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(DefaultStorageKey, `{"sectionsVisited":[],"totalTimeSpent":40}`))

	clock := newFakeClock()
	s, err := NewStore(kv, Options{Now: clock.Now})
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	s.FlushSession()

	assert.Equal(t, 60, savedRecord(t, kv, DefaultStorageKey).TotalTimeSpent)
}

func TestConcurrentMutations(t *testing.T) {
	var mu sync.Mutex
	unlocked := map[string]int{}
	s, kv := newTestStore(t, Options{OnUnlock: func(id string) {
		mu.Lock()
		unlocked[id]++
		mu.Unlock()
	}})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.MarkSectionVisited(fmt.Sprintf("section-%d", i%6))
			s.MarkExerciseCompleted(fmt.Sprintf("ex-%d", i))
			s.UpdateTimeSpent(1)
		}(i)
	}
	wg.Wait()

	rec := s.Snapshot()
	assert.Len(t, rec.SectionsVisited, 6)
	assert.Len(t, rec.ExercisesCompleted, 20)
	assert.Equal(t, 20, rec.TotalTimeSpent)
	assert.ElementsMatch(t, []string{
		AchievementFirstSection, AchievementCompletionist,
		AchievementFirstExercise, AchievementHandsOnLearner,
	}, rec.Achievements)
	for id, n := range unlocked {
		assert.Equal(t, 1, n, "achievement %s unlocked more than once", id)
	}
	assert.Equal(t, rec, savedRecord(t, kv, DefaultStorageKey))
}
