// Package oplog implements the append-only opportunity logger:
// one JSON line per discovered opportunity, fsynced before the write is
// considered durable, with the parent directory created on demand.
package oplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rawblock/arb-engine/pkg/models"
)

// Logger appends one JSON line per call to a single file, fsyncing after
// every write so a crash never loses an acknowledged opportunity. Safe for
// concurrent use: one mutex serializes writes across goroutines — the file
// itself needs no other locking since every write is append-only.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New creates the log file's parent directory (if absent) and returns a
// Logger bound to path.
func New(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("oplog: create log directory %s: %w", dir, err)
		}
	}
	return &Logger{path: path}, nil
}

// LogOnChain appends an on-chain cyclic-trade opportunity record.
func (l *Logger) LogOnChain(opp models.OnChainOpportunity) error {
	return l.appendLine(opp)
}

// LogRest appends a REST cross-DEX spread opportunity record.
func (l *Logger) LogRest(opp models.RestOpportunity) error {
	return l.appendLine(opp)
}

func (l *Logger) appendLine(v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("oplog: marshal: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("oplog: open %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("oplog: write %s: %w", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("oplog: sync %s: %w", l.path, err)
	}
	return nil
}
