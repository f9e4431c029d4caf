package transport

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// Every strategy exit path must release its stream reader goroutine.
	goleak.VerifyTestMain(m)
}
