// Package config loads the device client's settings from a TOML file.
//
// The file is created with defaults on first use so that the generated
// device id stays stable across runs.
package config
