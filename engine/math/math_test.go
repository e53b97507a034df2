package math

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name            string
		v, low, high, w uint32
	}{
		{"below", 0, 1, 4096, 1},
		{"inside", 800, 1, 4096, 800},
		{"above", 9000, 1, 4096, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.low, tt.high); got != tt.w {
				t.Errorf("Clamp(%d) = %d, want %d", tt.v, got, tt.w)
			}
		})
	}
	if got := Clamp(-1.5, -1.0, 1.0); got != -1.0 {
		t.Errorf("float clamp = %f", got)
	}
}

func TestRandomInRangeIsDeterministic(t *testing.T) {
	a, b := NewRandom(7), NewRandom(7)
	for i := 0; i < 100; i++ {
		x, y := RandomInRange(a, -0.5, 0.5), RandomInRange(b, -0.5, 0.5)
		if x != y {
			t.Fatalf("seeded generators diverged at %d", i)
		}
		if x < -0.5 || x >= 0.5 {
			t.Fatalf("value %f out of range", x)
		}
	}
}
