package market

import "github.com/shopspring/decimal"

// SpreadCalculation is the derived result of comparing two venue prices.
// It is never stored — the cache only ever holds raw PricePoints.
type SpreadCalculation struct {
	Spread        decimal.Decimal
	PremiumVenue  string
	DiscountVenue string
	PricePremium  decimal.Decimal
	PriceDiscount decimal.Decimal
}

// SpreadScenarioA computes the spot-vs-futures spread:
// spread = (futures - spot) / spot. PremiumVenue is "futures" iff spread > 0.
// Division by zero yields spread = 0 (no signal), never an error.
func SpreadScenarioA(futuresPx, spotPx decimal.Decimal) SpreadCalculation {
	spread := divOrZero(futuresPx.Sub(spotPx), spotPx)

	premium, discount := "spot", "futures"
	if spread.Sign() > 0 {
		premium, discount = "futures", "spot"
	}

	return SpreadCalculation{
		Spread:        spread,
		PremiumVenue:  premium,
		DiscountVenue: discount,
		PricePremium:  decimal.Max(futuresPx, spotPx),
		PriceDiscount: decimal.Min(futuresPx, spotPx),
	}
}

// SpreadScenarioB computes the perp-vs-perp spread between two venues.
// It identifies which venue is cheaper and computes
// spread = (expensive - cheap) / cheap, which is always >= 0.
func SpreadScenarioB(priceA, priceB decimal.Decimal, venueA, venueB string) SpreadCalculation {
	if priceA.LessThan(priceB) {
		return SpreadCalculation{
			Spread:        divOrZero(priceB.Sub(priceA), priceA),
			PremiumVenue:  venueB,
			DiscountVenue: venueA,
			PricePremium:  priceB,
			PriceDiscount: priceA,
		}
	}
	return SpreadCalculation{
		Spread:        divOrZero(priceA.Sub(priceB), priceB),
		PremiumVenue:  venueA,
		DiscountVenue: venueB,
		PricePremium:  priceA,
		PriceDiscount: priceB,
	}
}

// EntryOk reports whether the spread magnitude meets the entry threshold.
func EntryOk(spread, threshold decimal.Decimal) bool {
	return spread.Abs().GreaterThanOrEqual(threshold)
}

// ExitOk reports whether the spread magnitude has narrowed to the exit
// threshold.
func ExitOk(spread, threshold decimal.Decimal) bool {
	return spread.Abs().LessThanOrEqual(threshold)
}

// divOrZero returns num/den, or zero if den is zero — the spread engine
// never signals on a zero denominator instead of panicking or erroring.
func divOrZero(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
