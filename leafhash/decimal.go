package leafhash

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var bigTen = big.NewInt(10)

// Decimal is an arbitrary precision decimal number, `Unscaled * 10^-Scale`.
//
// Values built through [ParseDecimal] or [NewDecimal] are normalized: trailing
// zeros of the unscaled value are folded into the scale and zero always has a
// scale of 0. Two normalized decimals are numerically equal if and only if
// their fields are equal, which is what makes them usable as leaf values.
//
// The type is not meant for arithmetic.
type Decimal struct {
	Unscaled *big.Int
	Scale    int64
}

// MaxScale bounds the magnitude of a normalized decimal scale, the range of
// an IEEE 754 decimal128 exponent. Decimals outside of it are refused with
// [ErrScaleOutOfRange].
const MaxScale = 6176

// maxRawScale bounds scales before normalization, which removes at most one
// unit of scale per digit.
const maxRawScale = 1 << 40

var ErrScaleOutOfRange = errors.New("decimal scale out of range")

func NewDecimal(unscaled *big.Int, scale int64) (Decimal, error) {
	return checkedDecimal(new(big.Int).Set(unscaled), scale)
}

func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}

	return d
}

// ParseDecimal parses a decimal in plain (`-12.50`) or scientific (`1.25e-3`)
// notation.
func ParseDecimal(s string) (Decimal, error) {
	basePart, exponentValue := s, int64(0)
	if loc := strings.IndexAny(s, "eE"); loc != -1 {
		base, expRaw := s[:loc], strings.TrimPrefix(s[loc+1:], "+")

		exp, err := strconv.ParseInt(expRaw, 10, 64)
		if err != nil {
			return Decimal{}, fmt.Errorf("invalid exponent value %q: %w", expRaw, err)
		}

		if exp > maxRawScale || exp < -maxRawScale {
			return Decimal{}, fmt.Errorf("exponent %d: %w", exp, ErrScaleOutOfRange)
		}

		basePart = base
		exponentValue = exp
	}

	if basePart == "" {
		return Decimal{}, fmt.Errorf("failed to parse empty string")
	}

	digits, decimalOffset := basePart, int64(0)
	if loc := strings.IndexByte(basePart, '.'); loc != -1 {
		lead, trail := basePart[:loc], basePart[loc+1:]

		digits = lead + trail
		decimalOffset = int64(len(trail))
	}

	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("invalid digits part %q", digits)
	}

	return checkedDecimal(unscaled, decimalOffset-exponentValue)
}

// checkedDecimal normalizes unscaled and scale into a Decimal owning unscaled,
// refusing scales out of [-MaxScale, MaxScale] once normalized.
func checkedDecimal(unscaled *big.Int, scale int64) (Decimal, error) {
	if scale > maxRawScale || scale < -maxRawScale {
		return Decimal{}, fmt.Errorf("scale %d: %w", scale, ErrScaleOutOfRange)
	}

	out := Decimal{Unscaled: unscaled, Scale: scale}
	out.normalizeInPlace()

	if out.Scale > MaxScale || out.Scale < -MaxScale {
		return Decimal{}, fmt.Errorf("scale %d: %w", out.Scale, ErrScaleOutOfRange)
	}

	return out, nil
}

func (d Decimal) isZero() bool {
	return d.Unscaled == nil || d.Unscaled.Sign() == 0
}

func (d *Decimal) normalizeInPlace() {
	if d.isZero() {
		d.Unscaled = new(big.Int)
		d.Scale = 0
		return
	}

	sign, digits := d.Unscaled.Sign(), new(big.Int).Abs(d.Unscaled).String()
	trace("normalize: (sign %d, digits %s, scale %d)", sign, digits, d.Scale)

	digits, trailingCount := trailingZeroTruncated(digits)
	if trailingCount == 0 {
		return
	}

	d.Unscaled, _ = new(big.Int).SetString(digits, 10)
	if sign == -1 {
		d.Unscaled.Neg(d.Unscaled)
	}

	d.Scale -= trailingCount
	trace("normalize: truncated %d trailing zeros (unscaled %s, scale %d)", trailingCount, d.Unscaled, d.Scale)
}

func trailingZeroTruncated(in string) (string, int64) {
	out := strings.TrimRight(in, "0")
	return out, int64(len(in) - len(out))
}

// Cmp compares two decimals numerically.
func (d Decimal) Cmp(other Decimal) int {
	left, right := d.unscaledOrZero(), other.unscaledOrZero()

	switch {
	case d.Scale == other.Scale:
		return left.Cmp(right)
	case d.Scale < other.Scale:
		return rescale(left, other.Scale-d.Scale).Cmp(right)
	default:
		return left.Cmp(rescale(right, d.Scale-other.Scale))
	}
}

func (d Decimal) Equal(other Decimal) bool {
	return d.Cmp(other) == 0
}

// Int64 returns the decimal as an int64 when it is integral and fits.
func (d Decimal) Int64() (int64, bool) {
	if d.Scale > 0 || d.Scale < -18 {
		return 0, d.isZero()
	}

	value := rescale(d.unscaledOrZero(), -d.Scale)
	if !value.IsInt64() {
		return 0, false
	}

	return value.Int64(), true
}

func (d Decimal) unscaledOrZero() *big.Int {
	if d.Unscaled == nil {
		return new(big.Int)
	}
	return d.Unscaled
}

func rescale(in *big.Int, by int64) *big.Int {
	factor := new(big.Int).Exp(bigTen, big.NewInt(by), nil)
	return factor.Mul(factor, in)
}

func (d Decimal) String() string {
	unscaled := d.unscaledOrZero()
	if d.Scale <= 0 {
		return rescale(unscaled, -d.Scale).String()
	}

	negative := unscaled.Sign() < 0
	digits := new(big.Int).Abs(unscaled).String()
	if int64(len(digits)) <= d.Scale {
		digits = strings.Repeat("0", int(d.Scale)-len(digits)+1) + digits
	}

	point := len(digits) - int(d.Scale)
	out := digits[:point] + "." + digits[point:]
	if negative {
		out = "-" + out
	}

	return out
}

// MarshalText renders the decimal in plain notation, so JSON encodes it as a
// string keeping every digit.
func (d Decimal) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DEBUG_DECIMAL gates the very verbose decimal normalization tracing, both the
// flag and the `tracer` must be enabled for anything to be logged.
const DEBUG_DECIMAL = false

func trace(msg string, args ...any) {
	if DEBUG_DECIMAL && tracer.Enabled() {
		zlog.Debug(fmt.Sprintf(msg, args...))
	}
}
