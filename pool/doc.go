// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable memory for the I/O path. ScratchPool hands out the fixed-size
// overflow buffers a connection reads into when its input buffer is short
// on writable space.
package pool
