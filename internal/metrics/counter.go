package metrics

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu          sync.Mutex
	globalStore *Store
	initErr     error
	initialized bool
	logger      = zap.NewNop()
)

// Init opens the global store at path (empty for the default location).
// Later calls are no-ops until ResetForTesting.
func Init(path string, l *zap.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	if l != nil {
		logger = l
	}
	if initialized {
		return initErr
	}
	initialized = true

	globalStore, initErr = NewStore(path)
	if initErr != nil {
		logger.Warn("metrics: failed to initialize store", zap.Error(initErr))
	}
	return initErr
}

// RecordInvocation increments the invocation count for the given mode.
// Without an initialized store this is a no-op.
func RecordInvocation(mode Mode) {
	store := GetStore()
	if store == nil {
		return
	}

	if err := store.Increment(mode); err != nil {
		logger.Warn("metrics: failed to record invocation", zap.String("mode", string(mode)), zap.Error(err))
	}
}

// GetStats returns the cumulative invocation counts for all modes.
// Returns nil if the store is not initialized.
func GetStats() map[Mode]int64 {
	store := GetStore()
	if store == nil {
		return nil
	}

	stats, err := store.GetAllTotals()
	if err != nil {
		logger.Warn("metrics: failed to get stats", zap.Error(err))
		return nil
	}
	return stats
}

// Close closes the global metrics store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if globalStore != nil {
		return globalStore.Close()
	}
	return nil
}

// GetStore returns the global store instance.
func GetStore() *Store {
	mu.Lock()
	defer mu.Unlock()
	return globalStore
}

// SetStoreForTesting sets the global store instance for testing purposes.
func SetStoreForTesting(store *Store) {
	mu.Lock()
	defer mu.Unlock()
	globalStore = store
	initialized = true
}

// ResetForTesting resets the global state for testing purposes.
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	if globalStore != nil {
		_ = globalStore.Close()
	}
	globalStore = nil
	initialized = false
	initErr = nil
	logger = zap.NewNop()
}
