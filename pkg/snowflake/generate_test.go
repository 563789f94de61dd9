package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextToken(t *testing.T) {
	require.NoError(t, Init(1, 1))

	a, err := NextToken()
	require.NoError(t, err)
	b, err := NextToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)

	id, err := NextID()
	require.NoError(t, err)
	assert.Positive(t, id)
}
