package logger

import (
	"errors"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"verbose", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in) != nil; got != tt.want {
				t.Errorf("parseLevel(%q) != nil = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithAndNop(t *testing.T) {
	log := New("error", false).With(Site("acme"), Job("j1"))
	log.Info("discarded below level", Bool("ok", true))
	log.Error("kept", Error(errors.New("boom")))

	nop := NewNop().With(String("k", "v"))
	nop.Error("nothing")
	_ = nop.Sync()
}
