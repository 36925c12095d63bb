package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeTier(t *testing.T) {
	tests := []struct {
		name       string
		visitCount int
		totalSpent float64
		want       string
	}{
		{name: "first visit no spend", visitCount: 1, totalSpent: 0, want: TierNew},
		{name: "zero visits", visitCount: 0, totalSpent: 0, want: TierNew},
		{name: "second visit", visitCount: 2, totalSpent: 100, want: TierRecurring},
		{name: "third visit", visitCount: 3, totalSpent: 100, want: TierFrequent},
		{name: "fourth visit", visitCount: 4, totalSpent: 100, want: TierFrequent},
		{name: "fifth visit reaches vip", visitCount: 5, totalSpent: 0, want: TierVIP},
		{name: "many visits", visitCount: 40, totalSpent: 0, want: TierVIP},
		{name: "spend alone reaches vip", visitCount: 1, totalSpent: 50000, want: TierVIP},
		{name: "spend just below vip", visitCount: 1, totalSpent: 49999.99, want: TierNew},
		{name: "vip wins over frequent", visitCount: 4, totalSpent: 60000, want: TierVIP},
		{name: "frequent with spend below vip", visitCount: 4, totalSpent: 49999.99, want: TierFrequent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecomputeTier(tt.visitCount, tt.totalSpent))
		})
	}
}

func TestRecomputeTierIsIdempotent(t *testing.T) {
	first := RecomputeTier(3, 12000)
	second := RecomputeTier(3, 12000)
	assert.Equal(t, first, second)
}
