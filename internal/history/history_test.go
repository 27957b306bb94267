package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestLog(t *testing.T) (*Log, string, string) {
	t.Helper()
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "history.toml")
	marketDir := filepath.Join(dir, "history")
	l, err := Open(mainPath, marketDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.now = func() time.Time { return time.Unix(1700000000, 0) }
	return l, mainPath, marketDir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestEventAppendsTimestampedLine(t *testing.T) {
	l, mainPath, _ := openTestLog(t)
	defer l.Close()

	l.Event("first")
	l.Event("second")

	got := readFile(t, mainPath)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "[2023-11-14T22:13:20Z] first") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
}

func TestMarketEventWritesBothFiles(t *testing.T) {
	l, mainPath, marketDir := openTestLog(t)
	defer l.Close()

	cid := "0xabcdef0123456789deadbeefdeadbeef"
	l.MarketEvent(cid, 1700000100, "BUY ORDER PLACED")

	if got := readFile(t, mainPath); !strings.Contains(got, "BUY ORDER PLACED") {
		t.Errorf("main log missing event: %q", got)
	}
	marketPath := filepath.Join(marketDir, "market_0xabcdef01234567_1700000100.toml")
	if got := readFile(t, marketPath); !strings.Contains(got, "BUY ORDER PLACED") {
		t.Errorf("market log missing event: %q", got)
	}
}

func TestDummyMarketGetsNoFile(t *testing.T) {
	l, mainPath, marketDir := openTestLog(t)
	defer l.Close()

	l.MarketEvent("dummy_btc_fallback", 1700000100, "skipped")

	if got := readFile(t, mainPath); !strings.Contains(got, "skipped") {
		t.Errorf("main log missing event: %q", got)
	}
	entries, err := os.ReadDir(marketDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no market files for a dummy, found %d", len(entries))
	}
}

func TestMarketStartFansOut(t *testing.T) {
	l, _, marketDir := openTestLog(t)
	defer l.Close()

	l.MarketStart(1700000100,
		"0xeth0000000000000000", "0xbtc0000000000000000",
		"dummy_solana_fallback", "0xxrp0000000000000000")

	entries, err := os.ReadDir(marketDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("want 3 market files (dummy excluded), got %d", len(entries))
	}
	for _, e := range entries {
		got := readFile(t, filepath.Join(marketDir, e.Name()))
		if !strings.Contains(got, "NEW MARKET STARTED | Period: 1700000100") {
			t.Errorf("%s missing start line: %q", e.Name(), got)
		}
	}
}
