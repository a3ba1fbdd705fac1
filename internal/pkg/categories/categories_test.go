package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForRole(t *testing.T) {
	assert.Len(t, ForRole(false), 5)
	assert.Len(t, ForRole(true), 8)
	assert.Equal(t, "others", All[len(All)-1].Value)
	assert.Equal(t, "wrong_parking", All[0].Value)
}

func TestIsOfficial(t *testing.T) {
	assert.True(t, IsOfficial("overspeeding"))
	assert.True(t, IsOfficial("phone_driving"))
	assert.False(t, IsOfficial("illegal_horn"))
	assert.False(t, IsOfficial("unknown"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Illegal Use of Horn", Label("illegal_horn"))
	assert.Equal(t, "custom", Label("custom"))
	assert.True(t, IsKnown("no_seatbelt"))
	assert.False(t, IsKnown("custom"))
}
