package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestSpreadScenarioA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		futures  string
		spot     string
		wantZero bool
		wantPrem string
		wantDisc string
	}{
		{"futures premium", "48000", "46000", false, "futures", "spot"},
		{"spot premium", "46000", "48000", false, "spot", "futures"},
		{"zero spot", "100", "0", true, "spot", "futures"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calc := SpreadScenarioA(d(tt.futures), d(tt.spot))
			if tt.wantZero {
				if !calc.Spread.IsZero() {
					t.Errorf("spread = %s, want 0", calc.Spread)
				}
			} else {
				want := d(tt.futures).Sub(d(tt.spot)).Div(d(tt.spot))
				if !calc.Spread.Equal(want) {
					t.Errorf("spread = %s, want %s", calc.Spread, want)
				}
			}
			if calc.PremiumVenue != tt.wantPrem {
				t.Errorf("premium venue = %s, want %s", calc.PremiumVenue, tt.wantPrem)
			}
			if calc.DiscountVenue != tt.wantDisc {
				t.Errorf("discount venue = %s, want %s", calc.DiscountVenue, tt.wantDisc)
			}
		})
	}
}

func TestSpreadScenarioAExactIdentity(t *testing.T) {
	t.Parallel()
	// For all (a, b) with b > 0, spread == (a-b)/b exactly.
	a, b := d("48000"), d("46000")
	want := a.Sub(b).Div(b)
	got := SpreadScenarioA(a, b).Spread
	if !got.Equal(want) {
		t.Errorf("spread = %s, want %s", got, want)
	}
}

func TestSpreadScenarioBAlwaysNonNegative(t *testing.T) {
	t.Parallel()

	calc1 := SpreadScenarioB(d("100"), d("105"), "A", "B")
	if calc1.Spread.Sign() < 0 {
		t.Errorf("scenario B spread must be >= 0, got %s", calc1.Spread)
	}
	if calc1.PremiumVenue != "B" || calc1.DiscountVenue != "A" {
		t.Errorf("expected B premium over A, got premium=%s discount=%s", calc1.PremiumVenue, calc1.DiscountVenue)
	}

	calc2 := SpreadScenarioB(d("105"), d("100"), "A", "B")
	if calc2.PremiumVenue != "A" || calc2.DiscountVenue != "B" {
		t.Errorf("expected A premium over B, got premium=%s discount=%s", calc2.PremiumVenue, calc2.DiscountVenue)
	}
}

func TestSpreadScenarioBZeroDenominator(t *testing.T) {
	t.Parallel()
	calc := SpreadScenarioB(d("0"), d("0"), "A", "B")
	if !calc.Spread.IsZero() {
		t.Errorf("expected zero spread for zero prices, got %s", calc.Spread)
	}
}

func TestEntryExitOk(t *testing.T) {
	t.Parallel()

	threshold := d("0.04")
	if !EntryOk(d("0.05"), threshold) {
		t.Error("0.05 should clear 0.04 entry threshold")
	}
	if EntryOk(d("0.03"), threshold) {
		t.Error("0.03 should not clear 0.04 entry threshold")
	}
	if !EntryOk(d("-0.05"), threshold) {
		t.Error("EntryOk must use absolute value")
	}

	exitThreshold := d("0.005")
	if !ExitOk(d("0.002"), exitThreshold) {
		t.Error("0.002 should satisfy 0.005 exit threshold")
	}
	if ExitOk(d("0.01"), exitThreshold) {
		t.Error("0.01 should not satisfy 0.005 exit threshold")
	}
}
