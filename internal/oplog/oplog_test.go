package oplog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rawblock/arb-engine/pkg/models"
)

func TestNewCreatesParentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	path := filepath.Join(dir, "opportunities.jsonl")

	if _, err := New(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected log directory to be created at %s", dir)
	}
}

func TestLogOnChainAppendsOneLinePerCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opportunities.jsonl")
	l, err := New(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := l.LogOnChain(models.OnChainOpportunity{Kind: "onchain_cycle", StartMint: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.LogOnChain(models.OnChainOpportunity{Kind: "onchain_cycle", StartMint: "B"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 appended lines, got %d", len(lines))
	}
	var first models.OnChainOpportunity
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("expected valid JSON line: %v", err)
	}
	if first.StartMint != "A" {
		t.Errorf("expected first line's StartMint to be A, got %s", first.StartMint)
	}
}

func TestLogRestAppendsValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rest.jsonl")
	l, err := New(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.LogRest(models.RestOpportunity{TokenSymbol: "SOL", SpreadPercent: 0.27}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got models.RestOpportunity
	if err := json.Unmarshal(data[:len(data)-1], &got); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if got.TokenSymbol != "SOL" {
		t.Errorf("expected TokenSymbol SOL, got %s", got.TokenSymbol)
	}
}
