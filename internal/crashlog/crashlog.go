package crashlog

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/store"
)

// Recorder persists errors and panics to the error_logs table.
type Recorder interface {
	RecordError(ctx context.Context, entry store.ErrorEntry) error
}

var (
	global   Recorder
	globalMu sync.Mutex
)

// Init sets up the global crash logger. Call once at startup.
func Init(r Recorder) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = r
}

// LogPanic records a recovered panic with a full stack trace.
// Safe to call even if Init() was never called (logs only).
func LogPanic(module string, r any, ctx map[string]string) {
	msg := fmt.Sprintf("%v", r)
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	stackStr := string(stack[:n])

	logging.Errorf("PANIC %s: %s\n%s", module, msg, stackStr)

	insert(store.ErrorEntry{
		Level:      "panic",
		Module:     module,
		Message:    msg,
		Stacktrace: stackStr,
		Context:    encodeContext(ctx),
	})
}

// LogError records an error with optional context.
func LogError(module string, err error, ctx map[string]string) {
	if err == nil {
		return
	}

	insert(store.ErrorEntry{
		Level:   "error",
		Module:  module,
		Message: err.Error(),
		Context: encodeContext(ctx),
	})
}

func insert(entry store.ErrorEntry) {
	globalMu.Lock()
	r := global
	globalMu.Unlock()

	if r == nil {
		return
	}
	if err := r.RecordError(context.Background(), entry); err != nil {
		logging.Warnf("crashlog: %v", err)
	}
}

func encodeContext(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	b, err := json.Marshal(ctx)
	if err != nil {
		return ""
	}
	return string(b)
}
