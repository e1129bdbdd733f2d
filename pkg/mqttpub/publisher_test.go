package mqttpub

import (
	"strings"
	"testing"
)

func TestGenerateClientID(t *testing.T) {
	a := generateClientID()
	b := generateClientID()

	if !strings.HasPrefix(a, "bandd_") {
		t.Errorf("Expected bandd_ prefix, got %q", a)
	}
	if len(a) <= len("bandd_") {
		t.Errorf("Expected a non-empty suffix, got %q", a)
	}
	if a == b {
		t.Errorf("Expected distinct client IDs, got %q twice", a)
	}
}

func TestNewPublisherDisabled(t *testing.T) {
	p, err := NewPublisher(Config{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error for disabled publisher, got: %v", err)
	}
	if p != nil {
		t.Errorf("Expected nil publisher when disabled, got %+v", p)
	}

	// Publishing and closing through the nil publisher must be no-ops.
	p.PublishBandChange(BandChangeMessage{Band: "20m"})
	p.Close()
}
