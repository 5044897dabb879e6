// Package progress tracks a learner's way through the guide.
//
// A Store owns one Record: the sections visited, exercises completed,
// minutes spent and achievements unlocked. Every change is written through
// a storage.Store under a fixed key; on construction the store rehydrates
// from that key and silently starts fresh when the saved value is missing
// or malformed.
//
// Achievements are derived from the section and exercise counters by a
// rule table (see DefaultRules). Unlocking is idempotent and the
// achievement list only ever grows.
//
//	kv, _ := storage.Open(cfg.Storage)
//	store, err := progress.NewStore(kv, progress.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	store.MarkSectionVisited("getting-started")
//	fmt.Println(store.CompletionPercentage())
//
// WatchSession flushes the time spent in a session when the process is
// about to exit.
package progress
