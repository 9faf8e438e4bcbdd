// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging and metrics shared by the loop, connection and
// server layers.
//
// Provides:
//   - Config with defaults, TOML loading and validation
//   - logrus logger construction from Config
//   - Prometheus collectors for connection and loop activity
package control
