// Package history implements the append-only trading event logs written in
// simulation mode: one main log plus one file per non-dummy market.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Log writes timestamped event lines to the main history file and, per
// market, to history/market_{conditionID[:16]}_{period}.toml. All writes are
// serialized by a mutex and hit the file immediately; there is no buffering
// to lose on crash.
type Log struct {
	mu          sync.Mutex
	main        *os.File
	dir         string
	marketFiles map[string]*os.File // condition id -> file
	now         func() time.Time
}

// Open opens (creating if needed) the main history file in append mode and
// ensures the per-market directory exists.
func Open(mainPath, dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir %s: %w", dir, err)
	}
	f, err := os.OpenFile(mainPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", mainPath, err)
	}
	return &Log{
		main:        f,
		dir:         dir,
		marketFiles: make(map[string]*os.File),
		now:         time.Now,
	}, nil
}

// Event appends one timestamped line to the main log.
func (l *Log) Event(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(l.main, msg)
}

// MarketEvent appends one timestamped line to both the main log and the
// market-specific log. Dummy markets only reach the main log.
func (l *Log) MarketEvent(conditionID string, period int64, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.write(l.main, msg)
	if f := l.marketFile(conditionID, period); f != nil {
		l.write(f, msg)
	}
}

// MarketStart records the start of a new period across the main log and
// every non-dummy market file.
func (l *Log) MarketStart(period int64, ethID, btcID, solID, xrpID string) {
	msg := fmt.Sprintf("NEW MARKET STARTED | Period: %d | ETH: %s | BTC: %s | SOL: %s | XRP: %s",
		period, short(ethID), short(btcID), short(solID), short(xrpID))

	l.mu.Lock()
	defer l.mu.Unlock()

	l.write(l.main, msg)
	for _, id := range []string{ethID, btcID, solID, xrpID} {
		if f := l.marketFile(id, period); f != nil {
			l.write(f, msg)
		}
	}
}

// Close closes every open file. Further writes are undefined.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.marketFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.marketFiles = make(map[string]*os.File)
	if err := l.main.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// write appends one timestamped line. Caller must hold l.mu. Write errors
// are swallowed: losing a history line must never take down the engine.
func (l *Log) write(f *os.File, msg string) {
	ts := l.now().UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(f, "[%s] %s\n", ts, msg)
}

// marketFile returns the per-market file for the given condition id, opening
// it on first use. Dummy condition ids get no file.
func (l *Log) marketFile(conditionID string, period int64) *os.File {
	if strings.HasPrefix(conditionID, "dummy_") {
		return nil
	}
	if f, ok := l.marketFiles[conditionID]; ok {
		return f
	}
	name := fmt.Sprintf("market_%s_%d.toml", short(conditionID), period)
	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	l.marketFiles[conditionID] = f
	return f
}

// short truncates a condition id to its 16-character prefix for filenames
// and log lines.
func short(conditionID string) string {
	if len(conditionID) > 16 {
		return conditionID[:16]
	}
	return conditionID
}
