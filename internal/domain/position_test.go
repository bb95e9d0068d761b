package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionWeightedAverageCost(t *testing.T) {
	// First buy establishes the cost basis at the purchase price.
	p := Position{AccountID: 1, StockID: 1}
	p = p.WithBuy(10, 100)
	assert.InDelta(t, 10.0, p.Quantity, 1e-9)
	assert.InDelta(t, 100.0, p.AverageCost, 1e-9)

	// A second buy at a higher price moves the average to the weighted mean:
	// (10*100 + 10*120) / 20 = 110.
	p = p.WithBuy(10, 120)
	assert.InDelta(t, 20.0, p.Quantity, 1e-9)
	assert.InDelta(t, 110.0, p.AverageCost, 1e-9)

	// Selling reduces quantity but never touches the cost basis.
	p = p.WithSell(15)
	assert.InDelta(t, 5.0, p.Quantity, 1e-9)
	assert.InDelta(t, 110.0, p.AverageCost, 1e-9)
	assert.False(t, p.IsDust())

	// Selling the remainder leaves dust, which the store deletes.
	p = p.WithSell(5)
	assert.True(t, p.IsDust())
}

func TestPositionDustTolerance(t *testing.T) {
	p := Position{Quantity: 3, AverageCost: 50}
	p = p.WithSell(3 - 1e-12)
	assert.True(t, p.IsDust(), "near-zero remainder should count as dust")
}

func TestPositionInvested(t *testing.T) {
	p := Position{Quantity: 8, AverageCost: 12.5}
	assert.InDelta(t, 100.0, p.Invested(), 1e-9)
}
