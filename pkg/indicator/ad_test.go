package indicator

import (
	"testing"
)

func TestAD_CloseAtHighAccumulates(t *testing.T) {
	ad := NewAD()

	// close == high -> MFM = 1, AD += volume
	val, err := ad.Update(ohlcBar(0, 105, 95, 105))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if val != 1000 {
		t.Errorf("Expected AD 1000 with close at high, got %f", val)
	}

	// close == low -> MFM = -1, AD -= volume
	val, _ = ad.Update(ohlcBar(1, 105, 95, 95))
	if val != 0 {
		t.Errorf("Expected AD 0 after close at low, got %f", val)
	}
}

func TestAD_ZeroSpreadContributesNothing(t *testing.T) {
	ad := NewAD()

	_, _ = ad.Update(ohlcBar(0, 105, 95, 105))
	before, _ := ad.Value()

	// high == low: MFM falls back to 0 instead of dividing by zero
	val, err := ad.Update(ohlcBar(1, 100, 100, 100))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if val != before {
		t.Errorf("Expected AD unchanged on zero-spread bar, got %f (was %f)", val, before)
	}
}

func TestAD_MidCloseIsNeutral(t *testing.T) {
	ad := NewAD()

	// close at the exact midpoint -> MFM = 0
	val, _ := ad.Update(ohlcBar(0, 110, 90, 100))
	if val != 0 {
		t.Errorf("Expected AD 0 with midpoint close, got %f", val)
	}
}

func TestAD_Reset(t *testing.T) {
	ad := NewAD()
	_, _ = ad.Update(ohlcBar(0, 105, 95, 105))

	ad.Reset()

	if ad.IsReady() {
		t.Error("AD should not be ready after reset")
	}
	if _, err := ad.Value(); err == nil {
		t.Error("Expected error after reset")
	}
}
