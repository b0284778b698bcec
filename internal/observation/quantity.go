package observation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UncountedSymbol is the eBird marker for "present but not counted".
const UncountedSymbol = "X"

// Quantity is the raw howMany value as reported upstream.
// The zero value means the field was absent.
type Quantity struct {
	raw     string
	present bool
}

// ParseQuantity builds a Quantity from a decoded value. It never fails:
// unsupported kinds are kept as their string form and normalize to the uncounted sentinel.
func ParseQuantity(v any) Quantity {
	switch q := v.(type) {
	case nil:
		return Quantity{}
	case Quantity:
		return q
	case string:
		return Quantity{raw: q, present: true}
	case int:
		return Quantity{raw: strconv.Itoa(q), present: true}
	case int8, int16, int32, int64:
		return Quantity{raw: strconv.FormatInt(toInt64(q), 10), present: true}
	case uint, uint8, uint16, uint32, uint64:
		return Quantity{raw: strconv.FormatUint(toUint64(q), 10), present: true}
	case float32:
		return fromFloat(float64(q))
	case float64:
		return fromFloat(q)
	case json.Number:
		return Quantity{raw: q.String(), present: true}
	default:
		return Quantity{raw: UncountedSymbol, present: true}
	}
}

func fromFloat(f float64) Quantity {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Quantity{raw: strconv.FormatInt(int64(f), 10), present: true}
	}
	return Quantity{raw: strconv.FormatFloat(f, 'g', -1, 64), present: true}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	}
	return 0
}

// Present reports whether the upstream record carried a howMany field at all.
func (q Quantity) Present() bool { return q.present }

// Raw returns the quantity as reported, or "" when absent.
func (q Quantity) Raw() string { return q.raw }

// String implements fmt.Stringer using the display form.
func (q Quantity) String() string {
	_, display := Normalize(q)
	return display
}

// UnmarshalJSON accepts numbers, strings and null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*q = Quantity{}
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*q = Quantity{raw: str, present: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// booleans, objects and arrays are kept but rank as uncounted
		*q = Quantity{raw: UncountedSymbol, present: true}
		return nil //nolint:nilerr // malformed quantities degrade instead of failing the batch
	}
	if i, err := n.Int64(); err == nil {
		*q = Quantity{raw: strconv.FormatInt(i, 10), present: true}
		return nil
	}
	if f, err := n.Float64(); err == nil {
		*q = fromFloat(f)
		return nil
	}
	*q = Quantity{raw: n.String(), present: true}
	return nil
}

// MarshalJSON emits the display form.
func (q Quantity) MarshalJSON() ([]byte, error) {
	_, display := Normalize(q)
	return json.Marshal(display)
}

// Normalize maps a quantity to a rank value and a display string.
// Absent, "X" and unparseable values rank as 1 and display as "X".
// A non-negative integer n ranks as max(n, 1) and displays as reported.
func Normalize(q Quantity) (rank int, display string) {
	if !q.present {
		return 1, UncountedSymbol
	}
	s := strings.TrimSpace(q.raw)
	if strings.EqualFold(s, UncountedSymbol) {
		return 1, UncountedSymbol
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 1, UncountedSymbol
	}
	return max(n, 1), s
}
