package gps

import "github.com/Jtaz8681/boat-app/pkg/geo"

// Tier is a qualitative bucket derived from the provider-reported
// accuracy radius. Two independent scales share the type: positioning
// accuracy and perceived signal strength.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierPoor   Tier = "poor"

	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
)

// Accuracy tier thresholds in meters. These are domain constants carried
// over from field calibration, not tunables.
const (
	accuracyHighM   = 5.0
	accuracyMediumM = 10.0
	accuracyLowM    = 20.0

	signalExcellentM = 3.0
	signalGoodM      = 8.0
	signalFairM      = 15.0
)

// AccuracyTier buckets an accuracy radius into high/medium/low/poor.
func AccuracyTier(accuracyM float64) Tier {
	switch {
	case accuracyM < accuracyHighM:
		return TierHigh
	case accuracyM < accuracyMediumM:
		return TierMedium
	case accuracyM < accuracyLowM:
		return TierLow
	default:
		return TierPoor
	}
}

// SignalTier buckets an accuracy radius into excellent/good/fair/poor.
func SignalTier(accuracyM float64) Tier {
	switch {
	case accuracyM < signalExcellentM:
		return TierExcellent
	case accuracyM < signalGoodM:
		return TierGood
	case accuracyM < signalFairM:
		return TierFair
	default:
		return TierPoor
	}
}

// AccuracyTierFor classifies a position, treating absence of a fix as the
// worst case rather than an error.
func AccuracyTierFor(pos *geo.Position) Tier {
	if pos == nil {
		return TierPoor
	}
	return AccuracyTier(pos.Accuracy)
}

// SignalTierFor classifies a position's signal strength; nil means no fix
// and maps to poor.
func SignalTierFor(pos *geo.Position) Tier {
	if pos == nil {
		return TierPoor
	}
	return SignalTier(pos.Accuracy)
}
