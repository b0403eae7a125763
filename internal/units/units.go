// Package units picks display magnitudes for byte counts.
package units

import (
	"math"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

// Base is the binary step between adjacent units.
const Base uint64 = 1024

// MaxExponent is the largest exponent Exponent returns (TB).
const MaxExponent = 4

var labels = [...]string{"B", "KB", "MB", "GB", "TB"}

// Exponent returns the largest e in 4..1 with num > base^e, else 0.
//
// The comparison is strict, so a value of exactly base^k selects k-1
// ("1024 B", not "1 KB"). The device firmware was built against this
// selection; do not change it without updating the device side.
func Exponent(num, base uint64) int {
	for e := MaxExponent; e >= 1; e-- {
		if num > Pow(base, e) {
			return e
		}
	}
	return 0
}

// Label returns the unit label for an exponent, "UB" when out of range.
func Label(exp int) model.UnitLabel {
	if exp < 0 || exp >= len(labels) {
		return model.NewUnitLabel("UB")
	}
	return model.NewUnitLabel(labels[exp])
}

// Scale returns round(num / base^exp * 10), saturated to 16 bits.
func Scale(num, base uint64, exp int) uint16 {
	v := math.Round(float64(num) / float64(Pow(base, exp)) * 10)
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

// Normalize scales num into its display unit.
func Normalize(num, base uint64) (uint16, model.UnitLabel) {
	exp := Exponent(num, base)
	return Scale(num, base, exp), Label(exp)
}

// Pow returns base^exp for small non-negative exponents.
func Pow(base uint64, exp int) uint64 {
	r := uint64(1)
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
