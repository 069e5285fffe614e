package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// PAWSUITE_TEST_MODE=1 makes the binaries exit before touching postgres or
// redis, so integration harnesses can exercise startup wiring in isolation.
const testModeEnv = "PAWSUITE_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether runtime side effects should be skipped.
func InTestMode() bool {
	testModeOnce.Do(RefreshTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads the environment after a test mutates it.
func RefreshTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}
