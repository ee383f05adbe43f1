package storage

import (
	"database/sql/driver"

	"modernc.org/sqlite"

	"campuswal/internal/search"
)

// itemMatchesFunc is the SQL name of search.MatchItem. Registering the Go
// predicate keeps SQL filtering identical to the in-process filter.
const itemMatchesFunc = "item_matches"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(itemMatchesFunc, 2, itemMatches)
}

func itemMatches(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if search.MatchItem(textArg(args[0]), textArg(args[1])) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
