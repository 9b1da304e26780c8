// internal/services/settlement_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateSplitWithManager(t *testing.T) {
	result := CalculateSplit(SplitInput{
		ArtistFee:            2000,
		ArtimeCommissionPct:  0.10,
		ManagerInvolved:      true,
		ManagerCommissionPct: 0.15,
		PaymentCosts:         15,
	})

	assert.Equal(t, 2000.0, result.ArtistFee)
	assert.Equal(t, 200.0, result.ArtimeCommission)
	assert.Equal(t, 300.0, result.ManagerCommission)
	assert.Equal(t, 1700.0, result.ArtistNetAmount)
	assert.Equal(t, 2215.0, result.TotalPayable)
}

func TestCalculateSplitWithoutManager(t *testing.T) {
	result := CalculateSplit(SplitInput{
		ArtistFee:            2000,
		ArtimeCommissionPct:  0.10,
		ManagerInvolved:      false,
		ManagerCommissionPct: 0.15,
		PaymentCosts:         15,
	})

	// No manager involved: the commission rate is ignored and the artist
	// keeps the whole fee.
	assert.Equal(t, 0.0, result.ManagerCommission)
	assert.Equal(t, 2000.0, result.ArtistNetAmount)
	assert.Equal(t, 2215.0, result.TotalPayable)
}

func TestCalculateSplitZeroCosts(t *testing.T) {
	result := CalculateSplit(SplitInput{
		ArtistFee:           500,
		ArtimeCommissionPct: 0.10,
	})

	assert.Equal(t, 50.0, result.ArtimeCommission)
	assert.Equal(t, 500.0, result.ArtistNetAmount)
	assert.Equal(t, 550.0, result.TotalPayable)
}

func TestCalculateSplitPayableCoversAllCharges(t *testing.T) {
	in := SplitInput{
		ArtistFee:            1234.56,
		ArtimeCommissionPct:  0.08,
		ManagerInvolved:      true,
		ManagerCommissionPct: 0.2,
		PaymentCosts:         9.5,
	}
	result := CalculateSplit(in)

	// The payer covers fee, platform commission and payment costs; the
	// manager's cut comes out of the artist's share, not on top.
	assert.InDelta(t, in.ArtistFee+result.ArtimeCommission+in.PaymentCosts, result.TotalPayable, 1e-9)
	assert.InDelta(t, in.ArtistFee, result.ArtistNetAmount+result.ManagerCommission, 1e-9)
}
