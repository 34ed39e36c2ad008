// Package testing flips the application into test mode so importing packages
// never start runtime side effects during go test.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("PIXELSMITH_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs the suite with test mode guaranteed on.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
