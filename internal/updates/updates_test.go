package updates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDevVersion(t *testing.T) {
	tests := []struct {
		version string
		isDev   bool
	}{
		{"", true},
		{"dev", true},
		{"1.0.0", false},
		{"v1.2.3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.isDev, IsDevVersion(tt.version), "version %q", tt.version)
	}
}

func TestNewProbe_DefaultSlug(t *testing.T) {
	p := NewProbe("", "1.0.0")
	assert.Equal(t, DefaultRepoSlug, p.slug)

	p = NewProbe("someone/fork", "1.0.0")
	assert.Equal(t, "someone/fork", p.slug)
}

func TestCheck_DevBuildSkipsProbe(t *testing.T) {
	p := NewProbe("", "dev")

	avail, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, avail.UpdateAvailable)
	assert.Equal(t, "dev", avail.CurrentVersion)
	assert.Empty(t, avail.LatestVersion)
}

func TestApply_RefusesDevBuild(t *testing.T) {
	for _, version := range []string{"", "dev"} {
		p := NewProbe("", version)
		_, err := p.Apply(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot self-update a development version")
	}
}
