package artifact

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGenerateProducesStablePNG(t *testing.T) {
	gen := NewGenerator("PRDL.ONE", "F1")

	first, err := gen.Generate("0d9c4f2a-1111-4222-8333-444455556666")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected PNG bytes")
	}
	// PNG magic header
	if !bytes.HasPrefix(first, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}

	second, err := gen.Generate("0d9c4f2a-1111-4222-8333-444455556666")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("generation must be deterministic for identical input")
	}
}

func TestPayloadProtocol(t *testing.T) {
	gen := NewGenerator("prdl.one", "f1")

	payload := gen.Payload("0d9c4f2a-1111-4222-8333-444455556666")
	want := "PRDL.ONE/0D9C4F2A111142228333444455556666F1"
	if payload != want {
		t.Errorf("payload = %s, want %s", payload, want)
	}
}

func TestGenerateFailures(t *testing.T) {
	gen := NewGenerator("PRDL.ONE", "F1")

	if _, err := gen.Generate(""); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("empty identifier: got %v, want ErrGenerationFailed", err)
	}

	// Past the maximum QR capacity the encoder must fail, not truncate
	if _, err := gen.Generate(strings.Repeat("X", 8000)); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("oversized identifier: got %v, want ErrGenerationFailed", err)
	}
}
