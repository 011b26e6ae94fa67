package logging

import "testing"

// TestLogLevelOrdering verifies the level ordering used by the filters.
func TestLogLevelOrdering(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

// TestLogLevelString tests the level names used in startup output.
func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{level: LevelDebug, want: "debug"},
		{level: LevelInfo, want: "info"},
		{level: LevelWarn, want: "warn"},
		{level: LevelError, want: "error"},
		{level: LogLevel(42), want: "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

// TestLoggingFunctions tests that the logging functions don't panic.
func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "Debug", fn: func() { Debug("test %s %d", "message", 123) }},
		{name: "Info", fn: func() { Info("test %s %d", "message", 123) }},
		{name: "Warn", fn: func() { Warn("test message") }},
		{name: "Error", fn: func() { Error("test message") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("function panicked: %v", r)
				}
			}()
			tt.fn()
		})
	}
}
