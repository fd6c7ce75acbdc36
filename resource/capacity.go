package resource

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vmsops/vmsctl/faults"
)

// Capacity strings use the decimal convention: "80 TB" is 80 * 10^12 bytes.
// Binary units must be spelled explicitly ("80 TiB" is 80 * 2^40).
var capacityUnits = map[string]float64{
	"":    1,
	"B":   1,
	"K":   1e3,
	"KB":  1e3,
	"M":   1e6,
	"MB":  1e6,
	"G":   1e9,
	"GB":  1e9,
	"T":   1e12,
	"TB":  1e12,
	"P":   1e15,
	"PB":  1e15,
	"KIB": 1 << 10,
	"MIB": 1 << 20,
	"GIB": 1 << 30,
	"TIB": 1 << 40,
	"PIB": 1 << 50,
}

var capacityFormatUnits = []struct {
	suffix string
	factor float64
}{
	{"PB", 1e15},
	{"TB", 1e12},
	{"GB", 1e9},
	{"MB", 1e6},
	{"KB", 1e3},
}

// ParseCapacity converts a human-readable size such as "80 TB", "1.5GiB" or
// "1048576" into a byte count.
func ParseCapacity(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, faults.NewTypedError(faults.ValidationError, "capacity value is empty", nil)
	}

	split := len(trimmed)
	for split > 0 {
		ch := trimmed[split-1]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			break
		}
		split--
	}

	numberPart := strings.TrimSpace(trimmed[:split])
	unitPart := strings.ToUpper(strings.TrimSpace(trimmed[split:]))

	factor, ok := capacityUnits[unitPart]
	if !ok {
		return 0, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("capacity %q has unknown unit %q", raw, strings.TrimSpace(trimmed[split:])),
			nil,
		)
	}

	amount, err := strconv.ParseFloat(numberPart, 64)
	if err != nil {
		return 0, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("capacity %q is not a number with an optional unit", raw),
			err,
		)
	}
	if amount < 0 {
		return 0, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("capacity %q is negative", raw), nil)
	}

	bytes := amount * factor
	if bytes > math.MaxInt64 {
		return 0, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("capacity %q overflows", raw), nil)
	}
	return int64(math.Round(bytes)), nil
}

// FormatCapacity renders a byte count with the largest decimal unit that
// divides it cleanly enough for a short representation.
func FormatCapacity(bytes int64) string {
	if bytes < 1000 {
		return strconv.FormatInt(bytes, 10) + " B"
	}
	for _, unit := range capacityFormatUnits {
		if float64(bytes) >= unit.factor {
			amount := float64(bytes) / unit.factor
			return strconv.FormatFloat(amount, 'f', -1, 64) + " " + unit.suffix
		}
	}
	return strconv.FormatInt(bytes, 10) + " B"
}

// CoerceCapacity converts string-typed capacity values to byte counts and
// passes numeric values through untouched.
func CoerceCapacity(value Value) (Value, error) {
	switch typed := value.(type) {
	case string:
		return ParseCapacity(typed)
	case int64, int, float64:
		normalized, err := Normalize(typed)
		if err != nil {
			return nil, err
		}
		return normalized, nil
	default:
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("capacity value must be a string or number, got %T", value),
			nil,
		)
	}
}
