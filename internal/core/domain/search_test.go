package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchOptionsNormalised(t *testing.T) {
	opts := SearchOptions{}.Normalised()
	assert.Equal(t, DefaultTopK, opts.TopK)
	assert.Equal(t, DefaultWidenFloor, opts.Widen)

	// A large TopK widens past the floor.
	opts = SearchOptions{TopK: 10}.Normalised()
	assert.Equal(t, 10, opts.TopK)
	assert.Equal(t, 10*DefaultWidenFactor, opts.Widen)

	// Explicit widen is respected.
	opts = SearchOptions{TopK: 3, Widen: 7}.Normalised()
	assert.Equal(t, 7, opts.Widen)
}

func TestSecurityContextIsUnrestricted(t *testing.T) {
	assert.True(t, SecurityContext{}.IsUnrestricted())

	level := 2
	assert.False(t, SecurityContext{ACLLabelsUnion: []string{"internal"}}.IsUnrestricted())
	assert.False(t, SecurityContext{ClassificationLabelsUnion: []string{"secret"}}.IsUnrestricted())
	assert.False(t, SecurityContext{DocLevelMax: &level}.IsUnrestricted())
}
