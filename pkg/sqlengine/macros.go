package sqlengine

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite "modernc.org/sqlite"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// Compatibility macros registered with the driver so that generated SQL
// using MySQL/PostgreSQL function names executes unchanged. SQLite has
// native GROUP_CONCAT and (since 3.44) STRING_AGG, so neither needs a
// registration here.
var macrosOnce sync.Once

func registerMacros() {
	macrosOnce.Do(func() {
		// Registration is process-global; duplicate names error only if
		// another package already claimed them, which we ignore.
		_ = sqlite.RegisterDeterministicScalarFunction("date_format", 2, macroDateFormat)
		_ = sqlite.RegisterDeterministicScalarFunction("to_date", 1, macroToDate)
		_ = sqlite.RegisterDeterministicScalarFunction("concat", -1, macroConcat)
		_ = sqlite.RegisterDeterministicScalarFunction("concat_ws", -1, macroConcatWS)
		_ = sqlite.RegisterDeterministicScalarFunction("year", 1, macroDatePart("year"))
		_ = sqlite.RegisterDeterministicScalarFunction("month", 1, macroDatePart("month"))
		_ = sqlite.RegisterDeterministicScalarFunction("day", 1, macroDatePart("day"))
	})
}

// macroDateFormat implements the simplified DATE_FORMAT(value, fmt)
// covering the %Y-%m-%d, %Y-%m, and %Y family.
func macroDateFormat(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("date_format expects 2 arguments")
	}
	t, ok := temporalArg(args[0])
	if !ok {
		return nil, nil
	}
	format, ok := stringArg(args[1])
	if !ok {
		return nil, fmt.Errorf("date_format: format must be text")
	}
	return t.Format(goLayout(format)), nil
}

func macroToDate(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	t, ok := temporalArg(args[0])
	if !ok {
		return nil, nil
	}
	return t.Format("2006-01-02"), nil
}

func macroConcat(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	var b strings.Builder
	for _, a := range args {
		if a == nil {
			return nil, nil
		}
		b.WriteString(argText(a))
	}
	return b.String(), nil
}

func macroConcatWS(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("concat_ws expects a separator")
	}
	sep, ok := stringArg(args[0])
	if !ok {
		return nil, fmt.Errorf("concat_ws: separator must be text")
	}
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		if a == nil {
			continue
		}
		parts = append(parts, argText(a))
	}
	return strings.Join(parts, sep), nil
}

// macroDatePart builds the YEAR/MONTH/DAY wrappers over EXTRACT
// semantics.
func macroDatePart(part string) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		t, ok := temporalArg(args[0])
		if !ok {
			return nil, nil
		}
		switch part {
		case "year":
			return int64(t.Year()), nil
		case "month":
			return int64(t.Month()), nil
		default:
			return int64(t.Day()), nil
		}
	}
}

// goLayout translates the supported strftime-style directives to a Go
// time layout.
func goLayout(format string) string {
	r := strings.NewReplacer(
		"%Y", "2006",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
	)
	return r.Replace(format)
}

func temporalArg(v driver.Value) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, _, ok := dataset.ParseTemporal(strings.TrimSpace(x))
		return t, ok
	case []byte:
		t, _, ok := dataset.ParseTemporal(strings.TrimSpace(string(x)))
		return t, ok
	}
	return time.Time{}, false
}

func stringArg(v driver.Value) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	return "", false
}

func argText(v driver.Value) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", x), "0"), ".")
	default:
		return fmt.Sprintf("%v", x)
	}
}
