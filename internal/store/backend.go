package store

import "fmt"

// Backend drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// NewBackend builds the backend named by driver.
func NewBackend(driver, path string, debug bool) (Backend, error) {
	switch driver {
	case DriverJSON, "":
		return NewFileBackend(path), nil
	case DriverSQLite:
		return NewSQLiteBackend(path, WithDebug(debug))
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
