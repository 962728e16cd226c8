package page

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mailru/easyjson"

	"github.com/loftside/swingbridge/internal/logging"
)

func init() {
	logging.Disable()
}

type sentCommand struct {
	Method string
	Params json.RawMessage
}

// fakeConn scripts protocol responses per method. Evaluations are routed
// through onEvaluate so tests can react to the expression text.
type fakeConn struct {
	mu   sync.Mutex
	sent []sentCommand

	navigateErrText string
	onEvaluate      func(expr string) (value any, exception string)
}

func (f *fakeConn) Send(method string, params any) (easyjson.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentCommand{Method: method, Params: raw})
	f.mu.Unlock()

	switch method {
	case "Page.navigate":
		result := map[string]any{"frameId": "F1", "loaderId": "L1"}
		if f.navigateErrText != "" {
			result["errorText"] = f.navigateErrText
		}
		out, _ := json.Marshal(result)
		return out, nil
	case "Runtime.evaluate":
		var req struct {
			Expression string `json:"expression"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		var value any
		var exception string
		if f.onEvaluate != nil {
			value, exception = f.onEvaluate(req.Expression)
		}
		if exception != "" {
			out, _ := json.Marshal(map[string]any{
				"result": map[string]any{"type": "object", "subtype": "error"},
				"exceptionDetails": map[string]any{
					"exceptionId":  1,
					"text":         "Uncaught",
					"lineNumber":   0,
					"columnNumber": 0,
					"exception":    map[string]any{"type": "object", "description": exception},
				},
			})
			return out, nil
		}
		out, _ := json.Marshal(map[string]any{
			"result": map[string]any{"type": "object", "value": value},
		})
		return out, nil
	}
	return easyjson.RawMessage(`{}`), nil
}

func (f *fakeConn) expressions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, cmd := range f.sent {
		if cmd.Method != "Runtime.evaluate" {
			continue
		}
		var req struct {
			Expression string `json:"expression"`
		}
		json.Unmarshal(cmd.Params, &req)
		out = append(out, req.Expression)
	}
	return out
}

func TestNavigate(t *testing.T) {
	t.Run("sleeps settle plus extra wait", func(t *testing.T) {
		conn := &fakeConn{}
		p := New(conn, WithSettleDelay(30*time.Millisecond))

		start := time.Now()
		err := p.Navigate(context.Background(), "https://dash.example/athletes", NavigateOptions{ExtraWait: 40 * time.Millisecond})
		if err != nil {
			t.Fatalf("Navigate failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
			t.Errorf("expected settle+extra wait of >=70ms, returned after %v", elapsed)
		}

		var params struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(conn.sent[0].Params, &params); err != nil {
			t.Fatal(err)
		}
		if params.URL != "https://dash.example/athletes" {
			t.Errorf("unexpected navigate url %q", params.URL)
		}
	})

	t.Run("surfaces navigation error text", func(t *testing.T) {
		conn := &fakeConn{navigateErrText: "net::ERR_NAME_NOT_RESOLVED"}
		p := New(conn, WithSettleDelay(0))

		err := p.Navigate(context.Background(), "https://bad.example", NavigateOptions{})
		if err == nil || !strings.Contains(err.Error(), "ERR_NAME_NOT_RESOLVED") {
			t.Fatalf("expected navigation error, got %v", err)
		}
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("returns value by value", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return 42, "" }}
		p := New(conn, WithSettleDelay(0))

		var n int
		if err := p.EvaluateInto("6*7", &n); err != nil {
			t.Fatalf("EvaluateInto failed: %v", err)
		}
		if n != 42 {
			t.Errorf("expected 42, got %d", n)
		}
	})

	t.Run("page exception becomes EvalError", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) {
			return nil, "ReferenceError: uploader is not defined"
		}}
		p := New(conn, WithSettleDelay(0))

		_, err := p.Evaluate("uploader.start()")
		var evalErr *EvalError
		if !errors.As(err, &evalErr) {
			t.Fatalf("expected *EvalError, got %v", err)
		}
		if !strings.Contains(evalErr.Detail, "uploader is not defined") {
			t.Errorf("page exception text lost: %q", evalErr.Detail)
		}
	})
}

func TestWaitFor(t *testing.T) {
	t.Run("appears on a later poll", func(t *testing.T) {
		var calls int
		conn := &fakeConn{onEvaluate: func(string) (any, string) {
			calls++
			return calls >= 3, ""
		}}
		p := New(conn, WithSettleDelay(0))

		if !p.WaitFor(context.Background(), "#upload-complete", 5*time.Second) {
			t.Fatal("expected selector to be found")
		}
		if calls < 3 {
			t.Errorf("expected at least 3 polls, got %d", calls)
		}
	})

	t.Run("absent selector returns false", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return false, "" }}
		p := New(conn, WithSettleDelay(0))

		start := time.Now()
		if p.WaitFor(context.Background(), "#never", 600*time.Millisecond) {
			t.Fatal("expected not-found")
		}
		if elapsed := time.Since(start); elapsed < 600*time.Millisecond {
			t.Errorf("returned before the timeout window: %v", elapsed)
		}
	})

	t.Run("cancellation ends the wait early", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return false, "" }}
		p := New(conn, WithSettleDelay(0))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		if p.WaitFor(ctx, "#never", 30*time.Second) {
			t.Fatal("expected not-found on cancellation")
		}
		if time.Since(start) > 2*time.Second {
			t.Error("cancelled wait did not return promptly")
		}
	})

	t.Run("evaluation errors count as not found yet", func(t *testing.T) {
		var calls int
		conn := &fakeConn{onEvaluate: func(string) (any, string) {
			calls++
			if calls == 1 {
				return nil, "Cannot find context with specified id"
			}
			return true, ""
		}}
		p := New(conn, WithSettleDelay(0))

		if !p.WaitFor(context.Background(), "#after-nav", 5*time.Second) {
			t.Fatal("expected recovery after transient evaluation error")
		}
	})
}

func TestFill(t *testing.T) {
	t.Run("missing element is an error", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return false, "" }}
		p := New(conn, WithSettleDelay(0))

		if err := p.Fill("input[name=email]", "coach@example.com"); err == nil {
			t.Fatal("expected error for missing element")
		}
	})

	t.Run("uses the native setter script", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return true, "" }}
		p := New(conn, WithSettleDelay(0))

		if err := p.Fill("input[name=email]", "coach@example.com"); err != nil {
			t.Fatalf("Fill failed: %v", err)
		}
		exprs := conn.expressions()
		if len(exprs) != 1 {
			t.Fatalf("expected one evaluation, got %d", len(exprs))
		}
		if !strings.Contains(exprs[0], "getOwnPropertyDescriptor") {
			t.Error("fill must assign through the native property setter")
		}
		if !strings.Contains(exprs[0], "new Event('input'") || !strings.Contains(exprs[0], "new Event('change'") {
			t.Error("fill must dispatch synthetic input and change events")
		}
	})
}

func TestClickMissingElementIsNoop(t *testing.T) {
	conn := &fakeConn{onEvaluate: func(string) (any, string) { return false, "" }}
	p := New(conn, WithSettleDelay(0))

	if err := p.Click("#maybe-button"); err != nil {
		t.Fatalf("missing click target must not error, got %v", err)
	}
}

func TestFirstMatch(t *testing.T) {
	t.Run("returns matched candidate", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return "input[type=email]", "" }}
		p := New(conn, WithSettleDelay(0))

		selector, ok := p.FirstMatch("input[name=email]", "input[type=email]")
		if !ok || selector != "input[type=email]" {
			t.Fatalf("unexpected result: %q %v", selector, ok)
		}
	})

	t.Run("no candidates match", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return nil, "" }}
		p := New(conn, WithSettleDelay(0))

		if _, ok := p.FirstMatch("#a", "#b"); ok {
			t.Fatal("expected no match")
		}
	})
}

func TestText(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return "Processing", "" }}
		p := New(conn, WithSettleDelay(0))

		text, found, err := p.Text(".status")
		if err != nil || !found || text != "Processing" {
			t.Fatalf("unexpected: %q %v %v", text, found, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		conn := &fakeConn{onEvaluate: func(string) (any, string) { return nil, "" }}
		p := New(conn, WithSettleDelay(0))

		_, found, err := p.Text(".status")
		if err != nil || found {
			t.Fatalf("expected not-found without error, got found=%v err=%v", found, err)
		}
	})
}
