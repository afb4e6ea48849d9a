// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after
// secret resolution.  Any tag mismatch or validation error aborts
// startup, ensuring the binary never runs with partial, malformed, or
// missing configuration.
//
// The rules we rely on are `required`, `hostname_port`, `fqdn`, `url`,
// and `oneof` on the storage driver.  Custom rules can be registered
// here as the configuration surface grows.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
