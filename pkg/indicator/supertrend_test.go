package indicator

import (
	"math"
	"testing"
)

func TestSupertrend_NewSupertrend(t *testing.T) {
	st, err := NewSupertrend(10, 3.0)
	if err != nil {
		t.Fatalf("Failed to create Supertrend: %v", err)
	}
	if st.Name() != "supertrend" {
		t.Errorf("Expected name 'supertrend', got '%s'", st.Name())
	}

	if _, err := NewSupertrend(10, 0); err == nil {
		t.Error("Expected error for non-positive multiplier")
	}
	if _, err := NewSupertrend(0, 3.0); err == nil {
		t.Error("Expected error for period < 1")
	}
}

func TestSupertrend_ReadyAtATRConvergence(t *testing.T) {
	st, _ := NewSupertrend(10, 3.0)

	for i := 0; i < 9; i++ {
		_, _ = st.Update(ohlcBar(i, 101, 99, 100))
		if st.IsReady() {
			t.Fatalf("Supertrend should not be ready after %d bars", i+1)
		}
	}

	_, _ = st.Update(ohlcBar(9, 101, 99, 100))
	if !st.IsReady() {
		t.Error("Supertrend should be ready once ATR(10) has converged")
	}
}

// Scripted breakout: a flat series establishes a downtrend with the upper
// band at 106, then a single close above the band must flip the trend up on
// exactly that bar.
func TestSupertrend_FlipsOnBreakout(t *testing.T) {
	st, _ := NewSupertrend(10, 3.0)

	// 15 flat bars: TR = 2, ATR = 2, bands 100 +/- 6
	var val float64
	for i := 0; i < 15; i++ {
		val, _ = st.Update(ohlcBar(i, 101, 99, 100))
		if !st.IsReady() {
			continue
		}
		if st.Uptrend() {
			t.Fatalf("Expected downtrend at bar %d (close 100 <= finalUpper 106)", i)
		}
		if math.Abs(val-106) > 1e-12 {
			t.Fatalf("Expected finalUpper 106 at bar %d, got %f", i, val)
		}
	}

	// Breakout bar: close 107 crosses the 106 upper band.
	// ATR = (2*9+8)/10 = 2.6, mid = 107, lower basic = 107 - 7.8 = 99.2
	val, _ = st.Update(ohlcBar(15, 108, 106, 107))
	if !st.Uptrend() {
		t.Fatal("Expected trend to flip up at the breakout bar")
	}
	if math.Abs(val-99.2) > 1e-9 {
		t.Errorf("Expected output to switch to finalLower 99.2, got %f", val)
	}
}

func TestSupertrend_FlipsOnBreakdown(t *testing.T) {
	st, _ := NewSupertrend(10, 3.0)

	// Establish an uptrend first: flat then breakout up
	for i := 0; i < 15; i++ {
		_, _ = st.Update(ohlcBar(i, 101, 99, 100))
	}
	_, _ = st.Update(ohlcBar(15, 108, 106, 107))
	if !st.Uptrend() {
		t.Fatal("Setup failed: expected uptrend after breakout")
	}

	// Drift flat near 107, then collapse below the lower band
	for i := 16; i < 22; i++ {
		_, _ = st.Update(ohlcBar(i, 108, 106, 107))
	}
	lower, _ := st.Value()
	if !st.Uptrend() {
		t.Fatal("Expected uptrend to persist on flat drift")
	}

	val, _ := st.Update(ohlcBar(22, lower-1, lower-3, lower-2))
	if st.Uptrend() {
		t.Error("Expected trend to flip down when close crosses below finalLower")
	}
	if upper, _ := st.Value(); val != upper {
		t.Errorf("Expected output to switch to finalUpper, got %f", val)
	}
}

func TestSupertrend_Reset(t *testing.T) {
	st, _ := NewSupertrend(10, 3.0)
	for i := 0; i < 12; i++ {
		_, _ = st.Update(ohlcBar(i, 101, 99, 100))
	}

	st.Reset()

	if st.IsReady() {
		t.Error("Supertrend should not be ready after reset")
	}
	if _, err := st.Value(); err == nil {
		t.Error("Expected error after reset")
	}
}
