package pricing

import "testing"

func TestRoundMoneyHalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{1.004, 1.00},
		{2.675, 2.68},
		{0, 0},
		{19.999, 20.00},
		{1234.505, 1234.51},
		{-1.005, -1.01},
		{-1.004, -1.00},
	}
	for _, c := range cases {
		if got := RoundMoney(c.in); got != c.want {
			t.Fatalf("RoundMoney(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFuelTotal(t *testing.T) {
	// 12.5 L at 205.35 per liter = 2566.875 -> 2566.88 half up
	if got := FuelTotal(12.5, 205.35); got != 2566.88 {
		t.Fatalf("FuelTotal = %v, want 2566.88", got)
	}
	if got := FuelTotal(20, 150); got != 3000.00 {
		t.Fatalf("FuelTotal = %v, want 3000", got)
	}
}

func TestCalloutFloorsAtBase(t *testing.T) {
	if got := Callout(0, 1200, 300); got != 1200 {
		t.Fatalf("zero distance should cost base price, got %v", got)
	}
	if got := Callout(2500, 1200, 300); got != 1950 {
		t.Fatalf("Callout(2.5km) = %v, want 1950", got)
	}
	if got := Callout(-10, 1200, 300); got != 1200 {
		t.Fatalf("negative distance should cost base price, got %v", got)
	}
}

func TestTravelSeconds(t *testing.T) {
	// 6 km at 30 km/h is 12 minutes.
	if got := TravelSeconds(6000, 30); got != 720 {
		t.Fatalf("TravelSeconds = %d, want 720", got)
	}
	if got := TravelSeconds(1000, 0); got != 0 {
		t.Fatalf("zero speed must yield 0, got %d", got)
	}
}
