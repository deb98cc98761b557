package footprint

import (
	"math"
	"strings"
)

// Field names a form input.
type Field string

// Form inputs, in reporting order.
const (
	FieldTransport Field = "transport"
	FieldMeals     Field = "meals"
	FieldEnergy    Field = "energy"
)

// Messages shown for rejected inputs.
const (
	MsgTransport = "Transport must be 0 or a positive number"
	MsgMeals     = "Meals must be 0 or a positive whole number"
	MsgEnergy    = "Electricity must be 0 or a positive number"
)

// MaxMeals is the largest meal count that survives a round trip through a
// float64 and an int without loss on every platform.
const MaxMeals = min(1<<53, math.MaxInt)

// ValidationError reports one rejected input.
type ValidationError struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// Validate checks the three inputs and returns one error per violated rule,
// always in the order transport, meals, energy. A nil slice means valid.
func Validate(transportKm, meals, energyKWh float64) []ValidationError {
	var errs []ValidationError
	if !isNonNegativeReal(transportKm) {
		errs = append(errs, ValidationError{Field: FieldTransport, Message: MsgTransport})
	}
	if !isNonNegativeReal(meals) || meals != math.Trunc(meals) || meals > MaxMeals {
		errs = append(errs, ValidationError{Field: FieldMeals, Message: MsgMeals})
	}
	if !isNonNegativeReal(energyKWh) {
		errs = append(errs, ValidationError{Field: FieldEnergy, Message: MsgEnergy})
	}
	return errs
}

func isNonNegativeReal(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// JoinErrors renders validation errors the way the message region shows them.
func JoinErrors(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, ". ")
}
