package store

import (
	"database/sql/driver"
	"fmt"
	"strings"

	sqlite "modernc.org/sqlite"
)

func init() {
	// SQLite's LOWER folds ASCII only; casefold gives queries the same
	// Unicode folding MemoryStore uses.
	_ = sqlite.RegisterDeterministicScalarFunction("casefold", 1, casefoldFunc)
}

// foldCase is the case folding every backend matches words under.
func foldCase(s string) string {
	return strings.ToLower(s)
}

func casefoldFunc(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return foldCase(v), nil
	case []byte:
		return foldCase(string(v)), nil
	default:
		return nil, fmt.Errorf("casefold: unsupported argument type %T", v)
	}
}
