package backoff

import (
	"testing"
	"time"
)

func TestCalculator(t *testing.T) {
	calc := NewCalculator(nil, 100*time.Millisecond, 0, 0)

	if _, ok := calc.Strategy().(ExponentialStrategy); !ok {
		t.Errorf("Strategy() returned wrong type: %T", calc.Strategy())
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{5, 3200 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := calc.Calculate(tt.attempt); got != tt.expected {
			t.Errorf("Calculate(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestCalculatorSequencesAreIndependent(t *testing.T) {
	calc := NewCalculator(ExponentialStrategy{}, time.Millisecond, 0, 0)

	first := calc.Sequence()
	first.NextBackOff()
	first.NextBackOff()

	second := calc.Sequence()
	if got := second.NextBackOff(); got != time.Millisecond {
		t.Errorf("fresh sequence NextBackOff() = %v, want 1ms", got)
	}
}

func BenchmarkCalculatorExponential(b *testing.B) {
	calc := NewCalculator(ExponentialStrategy{}, 100*time.Millisecond, 5*time.Second, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.Calculate(i % 10)
	}
}
