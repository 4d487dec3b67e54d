package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchEmptyRequirementIsTriviallySatisfied(t *testing.T) {
	result := Match(nil, nil)
	assert.Equal(t, 0, result.RequiredCount)
	assert.Equal(t, 0, result.MatchingCount)
	assert.True(t, result.FullyQualified)
	assert.False(t, result.PartiallyQualified)

	result = Match([]string{"bartender"}, nil)
	assert.True(t, result.FullyQualified)
	assert.False(t, result.PartiallyQualified)
}

func TestMatchPartial(t *testing.T) {
	result := Match([]string{"x"}, []string{"x", "y"})
	assert.Equal(t, 2, result.RequiredCount)
	assert.Equal(t, 1, result.MatchingCount)
	assert.False(t, result.FullyQualified)
	assert.True(t, result.PartiallyQualified)
}

func TestMatchFull(t *testing.T) {
	result := Match([]string{"x", "y", "z"}, []string{"x", "y"})
	assert.Equal(t, 2, result.RequiredCount)
	assert.Equal(t, 2, result.MatchingCount)
	assert.True(t, result.FullyQualified)
	assert.False(t, result.PartiallyQualified)
}

func TestMatchNone(t *testing.T) {
	result := Match(nil, []string{"x"})
	assert.Equal(t, 1, result.RequiredCount)
	assert.Equal(t, 0, result.MatchingCount)
	assert.False(t, result.FullyQualified)
	assert.False(t, result.PartiallyQualified)
}

func TestMatchIgnoresDuplicates(t *testing.T) {
	result := Match([]string{"x", "x"}, []string{"x", "x", "y"})
	assert.Equal(t, 2, result.RequiredCount)
	assert.Equal(t, 1, result.MatchingCount)
	assert.True(t, result.PartiallyQualified)
}
