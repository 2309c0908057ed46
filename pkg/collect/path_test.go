package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMemberPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"test.txt", "test.txt"},
		{"dir/test.txt", "dir/test.txt"},
		{"./dir/test.txt", "dir/test.txt"},
		{"dir/../test.txt", "test.txt"},
		{"dir//double.txt", "dir/double.txt"},
	}
	for _, tt := range tests {
		got, err := NormalizeMemberPath(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeMemberPathFailures(t *testing.T) {
	for _, in := range []string{
		"/absolute/path",
		"../escape",
		"a/../../escape",
		"./",
		".",
		"",
	} {
		_, err := NormalizeMemberPath(in)
		assert.Error(t, err, "expected failure for %q", in)
	}
}

func TestIsSafeRelativePath(t *testing.T) {
	safe := []string{"test.txt", "dir/test.txt", "deep/nested/path/file.json"}
	for _, p := range safe {
		assert.True(t, IsSafeRelativePath(p), p)
	}

	unsafe := []string{"", "/absolute", "../escape", "dir/../escape", ".", "./current", "dir//double"}
	for _, p := range unsafe {
		assert.False(t, IsSafeRelativePath(p), p)
	}
}
