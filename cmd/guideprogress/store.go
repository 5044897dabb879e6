package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"guideprogress/pkg/config"
	"guideprogress/pkg/progress"
	"guideprogress/pkg/storage"
	"guideprogress/pkg/ui"
)

// workspace is an opened progress store plus the things listening to it
type workspace struct {
	cfg      *config.Config
	store    *progress.Store
	kv       storage.Store
	notifier *ui.Notifier

	mu    sync.Mutex
	views []ui.SessionView
}

// watch registers v for unlocks and storage failures
func (w *workspace) watch(v ui.SessionView) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.views = append(w.views, v)
}

func (w *workspace) listeners() []ui.SessionView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ui.SessionView(nil), w.views...)
}

func (w *workspace) unlocked(id string) {
	w.notifier.Achievement(id)
	for _, v := range w.listeners() {
		v.Unlocked(id)
	}
}

func (w *workspace) storageFailed(err error) {
	w.notifier.StorageError(err)
	for _, v := range w.listeners() {
		v.StorageFailed(err)
	}
}

// Close releases the storage backend
func (w *workspace) Close() error {
	return w.kv.Close()
}

// openWorkspace loads configuration and opens the progress store. A backend
// that cannot be opened is replaced by an in-memory one so the command
// still runs.
func (a *app) openWorkspace(cmd *cobra.Command) (*workspace, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	rules, err := progress.RulesFromConfig(cfg.Progress.Achievements)
	if err != nil {
		return nil, fmt.Errorf("invalid achievement rules: %w", err)
	}

	if cfg.Storage.Backend == config.BackendEncrypted && cfg.Storage.Passphrase == "" && isTerminal(os.Stdin) {
		pass, err := readPassphrase(cmd.ErrOrStderr(), int(os.Stdin.Fd()))
		if err != nil {
			return nil, err
		}
		cfg.Storage.Passphrase = pass
	}

	kv, err := storage.Open(cfg.Storage)
	if err != nil {
		msg := "Storage unavailable, progress will not be saved"
		if errors.Is(err, storage.ErrDecrypt) {
			msg = "Wrong passphrase, saved progress left untouched and nothing will be saved"
		}
		a.log.WithError(err).WarnWithFields(msg, map[string]interface{}{
			"backend": cfg.Storage.Backend,
		})
		if !a.quiet {
			ui.PrintWarning(msg, err)
		}
		kv = storage.NewMemoryStore()
	}

	w := &workspace{
		cfg:      cfg,
		kv:       kv,
		notifier: ui.NewNotifier(cfg.Notifications, a.quiet),
	}

	store, err := progress.NewStore(kv, progress.Options{
		Key:            cfg.Storage.ResolvedKey(),
		TotalSections:  cfg.Progress.TotalSections,
		Rules:          rules,
		Logger:         a.log,
		OnUnlock:       w.unlocked,
		OnStorageError: w.storageFailed,
	})
	if err != nil {
		kv.Close()
		return nil, err
	}
	w.store = store

	return w, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readPassphrase prompts on w and reads a passphrase from fd without echo.
// An empty answer keeps the generated key file.
func readPassphrase(w io.Writer, fd int) (string, error) {
	fmt.Fprint(w, "Passphrase (empty to use the stored key file): ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}
