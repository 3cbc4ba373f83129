package reformulate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInstructionStoreDefaults(t *testing.T) {
	store := NewInstructionStore(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())

	desc, ok := store.Get(FieldDescription)
	if !ok || !strings.Contains(desc, "RÈGLES STRICTES") {
		t.Fatalf("expected default description instruction, got %q (ok=%v)", desc, ok)
	}
	sol, ok := store.Get(FieldSolution)
	if !ok || !strings.Contains(sol, "RÈGLES ULTRA-STRICTES") {
		t.Fatalf("expected default solution instruction, got %q (ok=%v)", sol, ok)
	}
	if _, ok := store.Get(FieldKind("titre")); ok {
		t.Fatal("unknown kind must not resolve")
	}
}

func TestInstructionStoreMergesMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.json")
	if err := os.WriteFile(path, []byte(`{"description":"custom description"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewInstructionStore(path, zap.NewNop())
	desc, _ := store.Get(FieldDescription)
	if desc != "custom description" {
		t.Fatalf("expected file value, got %q", desc)
	}
	sol, ok := store.Get(FieldSolution)
	if !ok || !strings.Contains(sol, "RÈGLES ULTRA-STRICTES") {
		t.Fatal("missing key must fall back to the default")
	}
}

func TestInstructionStoreCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.json")
	if err := os.WriteFile(path, []byte(`not json at all`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewInstructionStore(path, zap.NewNop())
	if desc, ok := store.Get(FieldDescription); !ok || desc == "" {
		t.Fatal("corrupt file must fall back to defaults")
	}
}

func TestInstructionStoreSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.json")
	store := NewInstructionStore(path, zap.NewNop())

	if err := store.Set(FieldSolution, "nouvelle consigne"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded := NewInstructionStore(path, zap.NewNop())
	sol, _ := reloaded.Get(FieldSolution)
	if sol != "nouvelle consigne" {
		t.Fatalf("expected persisted value, got %q", sol)
	}

	if err := reloaded.RestoreDefaults(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	sol, _ = reloaded.Get(FieldSolution)
	if !strings.Contains(sol, "RÈGLES ULTRA-STRICTES") {
		t.Fatal("restore must bring back the default text")
	}
}
