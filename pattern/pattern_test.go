package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndMatch_LabeledValuesWithTrailingJunk(t *testing.T) {
	t.Parallel()
	c, err := Compile("millis: {millis},pos:{pos},current:{current}")
	require.NoError(t, err)
	assert.Equal(t, []string{"millis", "pos", "current"}, c.Labels())

	values, ok := c.Match("a bunch of stuff…millis: 1234.5,pos:-4.0,current:100,trailing junk")
	require.True(t, ok)
	assert.Equal(t, []float64{1234.5, -4.0, 100.0}, values)
}

func TestCompile_EscapedBraces(t *testing.T) {
	t.Parallel()
	c, err := Compile("{{{label}}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"label"}, c.Labels())

	values, ok := c.Match("{42}")
	require.True(t, ok)
	assert.Equal(t, []float64{42}, values)
}

func TestCompile_InvalidLabel(t *testing.T) {
	t.Parallel()
	_, err := Compile("{bad label}")
	assert.Error(t, err)
}

func TestCompile_UnterminatedBrace(t *testing.T) {
	t.Parallel()
	_, err := Compile("{oops")
	assert.Error(t, err)
}

func TestMatch_NoMatchFails(t *testing.T) {
	t.Parallel()
	c, err := Compile("pos:{pos}")
	require.NoError(t, err)
	_, ok := c.Match("nothing relevant here")
	assert.False(t, ok)
}

func TestMatch_RoundTripLaw(t *testing.T) {
	t.Parallel()
	c, err := Compile("x={x} y={y}")
	require.NoError(t, err)

	line := "noise before x=-1.5 y=2 noise after"
	values, ok := c.Match(line)
	require.True(t, ok)
	assert.Equal(t, []float64{-1.5, 2}, values)
}

func TestMatch_NoValueSegmentsStillMatchesTags(t *testing.T) {
	t.Parallel()
	c, err := Compile("ok")
	require.NoError(t, err)
	values, ok := c.Match("prefix ok suffix")
	require.True(t, ok)
	assert.Empty(t, values)
}
