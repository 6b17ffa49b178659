package version

import (
	"strings"
	"testing"
)

func TestGetVersion_DefaultsToDev(t *testing.T) {
	if got := GetVersion(); got != "dev" {
		t.Fatalf("GetVersion() = %q, want dev", got)
	}
}

func TestString_IncludesBuildData(t *testing.T) {
	prevVersion, prevCommit, prevDate := version, commit, date
	t.Cleanup(func() { version, commit, date = prevVersion, prevCommit, prevDate })

	version, commit, date = "1.4.0", "abc123", "2026-01-02"

	got := String()
	if got != "oms-history version=1.4.0 commit=abc123 date=2026-01-02" {
		t.Fatalf("unexpected version string %q", got)
	}
	if GetVersion() != "1.4.0" {
		t.Fatalf("GetVersion() must follow ldflags value, got %q", GetVersion())
	}
}

func TestString_HasServicePrefix(t *testing.T) {
	if !strings.HasPrefix(String(), "oms-history ") {
		t.Fatalf("version string must start with service name: %q", String())
	}
}
