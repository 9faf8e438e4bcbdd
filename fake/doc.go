// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations of the api contracts for deterministic tests.
// Loop runs queued work only when the test says so, Channel fires handlers
// on demand, and Socket scripts inbound data and outbound back-pressure.
package fake
