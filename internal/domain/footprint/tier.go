package footprint

import "fmt"

// Tier is a feedback band over the estimated total.
type Tier string

// Feedback tiers.
const (
	TierLow      Tier = "LOW"
	TierModerate Tier = "MODERATE"
	TierHigh     Tier = "HIGH"
)

// Tier lower bounds in kg CO2e. Each bound belongs to the tier it opens.
const (
	ModerateFrom = 5.0
	HighFrom     = 15.0
)

// Text shown in the result region.
const (
	IdlePrompt      = "Fill in the form and press Calculate to see your estimated footprint."
	FixErrorsPrompt = "Please fix the errors and try again."
	NotSavedNote    = "Not saved in session."
)

var feedback = map[Tier]string{
	TierLow:      "🌍 Excellent — your footprint is low today.",
	TierModerate: "⚖️ Moderate — consider small changes to reduce it.",
	TierHigh:     "⚠️ High — consider swapping a car trip for walking/cycling or reducing meat meals.",
}

// Classify maps a total to its tier: LOW below 5, MODERATE in [5, 15),
// HIGH from 15 up.
func Classify(total float64) Tier {
	switch {
	case total < ModerateFrom:
		return TierLow
	case total < HighFrom:
		return TierModerate
	default:
		return TierHigh
	}
}

// Feedback returns the advice sentence for a tier.
func (t Tier) Feedback() string {
	return feedback[t]
}

// ResultMessage renders the message for a successful calculation.
func ResultMessage(total float64, tier Tier) string {
	return fmt.Sprintf("Estimated footprint: %s kg CO₂. %s", FormatTotal(total), tier.Feedback())
}

// RestoredMessage renders the message shown on load when the session log
// already holds a record.
func RestoredMessage(total float64) string {
	return fmt.Sprintf("Last session: %s kg CO₂ (saved in session).", FormatTotal(total))
}

// FormatTotal formats a total with two decimals.
func FormatTotal(total float64) string {
	return fmt.Sprintf("%.2f", total)
}
