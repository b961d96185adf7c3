package gitsource

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"https", "https://github.com/me/cards.git", filepath.Join("repos", "github.com", "me", "cards"), false},
		{"https without suffix", "https://gitlab.com/group/sub/cards", filepath.Join("repos", "gitlab.com", "group", "sub", "cards"), false},
		{"ssh shorthand", "git@github.com:me/cards.git", filepath.Join("repos", "github.com", "me", "cards"), false},
		{"ssh url", "ssh://git@example.org/team/cards.git", filepath.Join("repos", "example.org", "team", "cards"), false},
		{"plain directory", "notes", "", true},
		{"shorthand without path", "git@github.com:", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://github.com/me/cards"))
	assert.True(t, IsRemote("git@github.com:me/cards.git"))
	assert.True(t, IsRemote("ssh://git@example.org/team/cards"))
	assert.False(t, IsRemote("./notes"))
	assert.False(t, IsRemote("/home/me/cards"))
}

func TestSyncExistingDirectoryThatIsNotARepo(t *testing.T) {
	err := Sync(context.Background(), "https://example.invalid/cards.git", t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open existing repo")
}
