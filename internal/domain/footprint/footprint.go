// Package footprint computes a daily carbon footprint estimate from three
// activity inputs and maps it to a feedback tier.
package footprint

// Emission factors in kg CO2e per unit of activity (educational values).
const (
	TransportPerKm = 0.12 // per km by car
	MealPerMeat    = 2.5  // per meat meal
	EnergyPerKWh   = 0.3  // per kWh of electricity
)

// FactorTable holds the three emission coefficients. The zero value is not
// useful; obtain the process-wide table with Factors.
type FactorTable struct {
	TransportPerKm float64 `json:"transport_per_km"`
	MealPerMeat    float64 `json:"meal_per_meat"`
	EnergyPerKWh   float64 `json:"energy_per_kwh"`
}

// Factors returns a copy of the fixed factor table.
func Factors() FactorTable {
	return FactorTable{
		TransportPerKm: TransportPerKm,
		MealPerMeat:    MealPerMeat,
		EnergyPerKWh:   EnergyPerKWh,
	}
}

// Estimate returns transport*0.12 + meals*2.5 + energy*0.3.
// Inputs are expected to have passed Validate.
func Estimate(transportKm, meals, energyKWh float64) float64 {
	// Explicit conversions keep each product rounded on its own, so the
	// result never depends on whether the platform fuses multiply-add.
	return float64(transportKm*TransportPerKm) +
		float64(meals*MealPerMeat) +
		float64(energyKWh*EnergyPerKWh)
}
