package kv

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPrefix(t *testing.T) {
	assert.Equal(t, "admin:*", matchPrefix("admin:"))
	assert.Equal(t, `a\*b\?\[c\]\\*`, matchPrefix(`a*b?[c]\`))

	pattern := matchPrefix("user[1]*:")
	cases := map[string]bool{
		"user[1]*:session": true,
		"user[1]*:":        true,
		"user1:session":    false,
		"user[1]x:session": false,
		"userX*:session":   false,
	}
	for key, want := range cases {
		got, err := path.Match(pattern, key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
}
