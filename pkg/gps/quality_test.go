package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Jtaz8681/boat-app/pkg/geo"
)

func TestAccuracyTierThresholds(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     Tier
	}{
		{0, TierHigh},
		{4.99, TierHigh},
		{5, TierMedium},
		{9.99, TierMedium},
		{10, TierLow},
		{19.99, TierLow},
		{20, TierPoor},
		{100, TierPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AccuracyTier(tt.accuracy), "accuracy %.2f", tt.accuracy)
	}
}

func TestSignalTierThresholds(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     Tier
	}{
		{0, TierExcellent},
		{2.99, TierExcellent},
		{3, TierGood},
		{7.99, TierGood},
		{8, TierFair},
		{14.99, TierFair},
		{15, TierPoor},
		{50, TierPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SignalTier(tt.accuracy), "accuracy %.2f", tt.accuracy)
	}
}

// Quality must never improve as the accuracy radius grows.
func TestTiersMonotonicInAccuracy(t *testing.T) {
	rank := map[Tier]int{
		TierHigh: 3, TierExcellent: 3,
		TierMedium: 2, TierGood: 2,
		TierLow: 1, TierFair: 1,
		TierPoor: 0,
	}

	prevAcc, prevSig := rank[AccuracyTier(0)], rank[SignalTier(0)]
	for a := 0.5; a <= 30; a += 0.5 {
		accRank, sigRank := rank[AccuracyTier(a)], rank[SignalTier(a)]
		assert.LessOrEqual(t, accRank, prevAcc, "accuracy tier improved at %.1f", a)
		assert.LessOrEqual(t, sigRank, prevSig, "signal tier improved at %.1f", a)
		prevAcc, prevSig = accRank, sigRank
	}
}

func TestTierForNilPositionIsPoor(t *testing.T) {
	assert.Equal(t, TierPoor, AccuracyTierFor(nil))
	assert.Equal(t, TierPoor, SignalTierFor(nil))
}

func TestTierForPosition(t *testing.T) {
	pos := &geo.Position{Latitude: 25.7617, Longitude: -80.1918, Accuracy: 4, Timestamp: time.Now()}
	assert.Equal(t, TierHigh, AccuracyTierFor(pos))
	assert.Equal(t, TierGood, SignalTierFor(pos))
}
