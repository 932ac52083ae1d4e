package pricing

import (
	"math"
	"math/big"
	"strconv"
)

var half = big.NewRat(1, 2)

// RoundMoney rounds to 2 decimal places, half up. The value is taken at its
// shortest decimal representation and rounded in exact rational arithmetic,
// so decimal inputs sitting just under a binary .5 boundary (1.005, 2.675)
// still round up.
func RoundMoney(v float64) float64 {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return v
	}
	r.Mul(r, big.NewRat(100, 1))
	if r.Sign() >= 0 {
		r.Add(r, half)
	} else {
		r.Sub(r, half)
	}
	cents := new(big.Int).Quo(r.Num(), r.Denom())
	out, _ := new(big.Rat).SetFrac(cents, big.NewInt(100)).Float64()
	return out
}

// FuelTotal calculates the price of a fuel delivery: liters times the pump's
// unit price, rounded half up to 2 decimals.
func FuelTotal(liters, pricePerLiter float64) float64 {
	return RoundMoney(liters * pricePerLiter)
}

// Callout calculates the recommended price for an in-person service based on
// travel distance and pricing rules.
func Callout(distanceMeters float64, basePrice, pricePerKM float64) float64 {
	if distanceMeters < 0 {
		distanceMeters = 0
	}
	km := distanceMeters / 1000.0
	price := RoundMoney(basePrice + km*pricePerKM)
	if price < basePrice {
		return basePrice
	}
	return price
}

// TravelSeconds estimates travel time for the given distance at the average
// city speed. Returns 0 when the speed is not positive.
func TravelSeconds(distanceMeters, avgSpeedKPH float64) int {
	if avgSpeedKPH <= 0 || distanceMeters <= 0 {
		return 0
	}
	metersPerSecond := avgSpeedKPH * 1000 / 3600
	return int(math.Ceil(distanceMeters / metersPerSecond))
}
