package resource

import (
	"testing"
)

func TestClassify(t *testing.T) {
	const limit = 1000

	tests := []struct {
		name  string
		usage uint64
		want  Status
	}{
		{name: "zero usage", usage: 0, want: StatusOK},
		{name: "half of limit", usage: 500, want: StatusOK},
		{name: "exactly 75 percent", usage: 750, want: StatusOK},
		{name: "just above 75 percent", usage: 751, want: StatusElevated},
		{name: "exactly 90 percent", usage: 900, want: StatusElevated},
		{name: "just above 90 percent", usage: 901, want: StatusCritical},
		{name: "at the limit", usage: 1000, want: StatusCritical},
		{name: "over the limit", usage: 1500, want: StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.usage, limit)
			if got != tt.want {
				t.Errorf("classify(%d, %d) = %v, want %v", tt.usage, limit, got, tt.want)
			}
		})
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "ok"},
		{StatusElevated, "elevated"},
		{StatusCritical, "critical"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestRuntimeGovernor(t *testing.T) {
	g := NewGovernor(0, nil)

	if g.Limit() != DefaultLimitBytes {
		t.Errorf("Limit() = %d, want %d", g.Limit(), DefaultLimitBytes)
	}

	if g.Usage() == 0 {
		t.Error("Usage() = 0, want non-zero live heap")
	}

	// A test process is nowhere near the 4 GiB default.
	if status := g.Check(); status != StatusOK {
		t.Errorf("Check() = %v, want %v", status, StatusOK)
	}

	// Reclaim must not panic and must not report underflow.
	freed := g.Reclaim()
	if freed > g.Limit() {
		t.Errorf("Reclaim() = %d, implausibly large", freed)
	}
}

func TestRuntimeGovernor_CriticalAtTinyLimit(t *testing.T) {
	g := NewGovernor(1, nil)

	if status := g.Check(); status != StatusCritical {
		t.Errorf("Check() with 1-byte limit = %v, want %v", status, StatusCritical)
	}
}

func TestNopGovernor(t *testing.T) {
	var g Governor = NopGovernor{}

	if g.Usage() != 0 {
		t.Errorf("Usage() = %d, want 0", g.Usage())
	}
	if g.Check() != StatusOK {
		t.Errorf("Check() = %v, want %v", g.Check(), StatusOK)
	}
	if g.Reclaim() != 0 {
		t.Errorf("Reclaim() = %d, want 0", g.Reclaim())
	}
}
