package api_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-conn/api"
)

func TestErrnoClassification(t *testing.T) {
	cases := []struct {
		err       error
		temporary bool
		peerGone  bool
	}{
		{unix.EAGAIN, true, false},
		{unix.EINTR, true, false},
		{errors.Wrap(unix.EAGAIN, "readv"), true, false},
		{unix.EPIPE, false, true},
		{errors.Wrap(unix.ECONNRESET, "write"), false, true},
		{unix.EBADF, false, false},
		{nil, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.temporary, api.IsTemporary(tc.err), "%v", tc.err)
		assert.Equal(t, tc.peerGone, api.IsPeerGone(tc.err), "%v", tc.err)
	}
}
