package querykeys

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("invalid log line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestZerologLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := ZerologLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	Merge(
		Schema{"users": Schema{"all": Define(QueryOptions{})}},
		Schema{"users": Schema{"all": Define(QueryOptions{})}},
	)
	NewMerger(WithLogger(logger)).Merge(
		Schema{"users": Schema{"all": Define(QueryOptions{})}},
		Schema{"users": Schema{"all": Define(QueryOptions{})}},
	)
	if _, err := Compile(Schema{"bad": 1}, WithLogger(logger)); err == nil {
		t.Fatalf("expected compile error")
	}

	lines := decodeLogLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %v", len(lines), lines)
	}

	override := lines[0]
	if override["level"] != "warn" || override["op"] != OpOverride || override["path"] != "users.all" {
		t.Fatalf("unexpected override line %v", override)
	}
	if override["fragment"] != float64(1) || override["kind"] != "query" {
		t.Fatalf("unexpected override fields %v", override)
	}

	merge := lines[1]
	if merge["level"] != "debug" || merge["op"] != OpMerge || merge["message"] != "querykeys merge" {
		t.Fatalf("unexpected merge line %v", merge)
	}

	failure := lines[2]
	if failure["level"] != "error" || failure["op"] != OpCompile || failure["error"] == nil {
		t.Fatalf("unexpected failure line %v", failure)
	}
}

func TestZerologLoggerQueryKey(t *testing.T) {
	var buf bytes.Buffer
	tree := MustCompile(userFragment(), WithLogger(ZerologLogger(zerolog.New(&buf))))
	buf.Reset()

	detail, _ := tree.Factory("users", "detail")
	detail.MustCall("42")

	lines := decodeLogLines(t, &buf)
	if len(lines) != 1 || lines[0]["query_key"] != "users.detail.42" {
		t.Fatalf("unexpected factory log %v", lines)
	}
}

func TestWithLoggerNil(t *testing.T) {
	cfg := applyOptions([]Option{WithLogger(nil)})
	cfg.log().Log(LogEvent{Operation: OpCompile, Err: errors.New("ignored")})
	if _, ok := cfg.log().(noopLogger); !ok {
		t.Fatalf("nil logger should fall back to noop")
	}
	var fn LoggerFunc
	fn.Log(LogEvent{})
}
