package workers

import "testing"

// TestCeiling tests the ceiling policy and its environment override.
func TestCeiling(t *testing.T) {
	tests := []struct {
		name        string
		constrained bool
		override    string
		want        int
	}{
		{name: "default", want: DefaultCeiling},
		{name: "constrained", constrained: true, want: ConstrainedCeiling},
		{name: "override", override: "5", want: 5},
		{name: "override beats constrained", constrained: true, override: "2", want: 2},
		{name: "invalid override ignored", override: "zero", want: DefaultCeiling},
		{name: "non-positive override ignored", override: "0", want: DefaultCeiling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GALLERY_WORKERS", tt.override)

			if got := Ceiling(tt.constrained); got != tt.want {
				t.Errorf("Ceiling(%v) = %d, want %d", tt.constrained, got, tt.want)
			}
		})
	}
}
