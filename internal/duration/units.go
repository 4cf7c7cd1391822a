package duration

import (
	"sort"

	"github.com/samber/lo"
)

// Unit is a retention time unit.
type Unit int

const (
	Minute Unit = iota + 1
	Hour
	Day
	Week
	Month
	Year
)

// Seconds returns the fixed length of the unit in seconds.
// Month is 30 days and Year is 365 days; neither is calendar-aware.
func (u Unit) Seconds() int64 {
	switch u {
	case Minute:
		return 60
	case Hour:
		return 3600
	case Day:
		return 86400
	case Week:
		return 7 * 86400
	case Month:
		return 30 * 86400
	case Year:
		return 365 * 86400
	default:
		return 0
	}
}

// String returns the singular unit name.
func (u Unit) String() string {
	switch u {
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// aliases maps every accepted (lowercase) token to its unit.
// "m" is minutes and "mo" is months; keys never overlap.
var aliases = map[string]Unit{
	"minute":  Minute,
	"minutes": Minute,
	"min":     Minute,
	"m":       Minute,

	"hour":  Hour,
	"hours": Hour,
	"hr":    Hour,
	"h":     Hour,

	"day":  Day,
	"days": Day,
	"d":    Day,

	"week":  Week,
	"weeks": Week,
	"w":     Week,

	"month":  Month,
	"months": Month,
	"mo":     Month,

	"year":  Year,
	"years": Year,
	"yr":    Year,
	"y":     Year,
}

// LookupUnit resolves a unit token case-insensitively.
func LookupUnit(token string) (Unit, bool) {
	u, ok := aliases[lower(token)]
	return u, ok
}

// Alias is one row of the alias table.
type Alias struct {
	Token string
	Unit  Unit
}

// Aliases returns the alias table ordered by unit length, then token.
func Aliases() []Alias {
	rows := lo.MapToSlice(aliases, func(token string, u Unit) Alias {
		return Alias{Token: token, Unit: u}
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Unit != rows[j].Unit {
			return rows[i].Unit < rows[j].Unit
		}
		return rows[i].Token < rows[j].Token
	})
	return rows
}

// Tokens returns every accepted unit token, sorted.
func Tokens() []string {
	tokens := lo.Keys(aliases)
	sort.Strings(tokens)
	return tokens
}
