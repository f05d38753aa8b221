package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFilterValues(t *testing.T) {
	env := newQueryEnv(t)

	result, err := NewGetFilterValuesHandler(env.store.Teams()).Handle(context.Background(), GetFilterValuesQuery{
		ContestID: 1,
		Jury:      true,
	})
	require.NoError(t, err)

	require.Len(t, result.Affiliations, 2)
	assert.Equal(t, []string{"KAZ", "NLD"}, result.Countries)
	require.Len(t, result.Categories, 2)
	assert.Equal(t, "Participants", result.Categories[0].Name)
}

func TestGetFilterValues_InvalidContest(t *testing.T) {
	env := newQueryEnv(t)

	_, err := NewGetFilterValuesHandler(env.store.Teams()).Handle(context.Background(), GetFilterValuesQuery{})
	require.Error(t, err)
}
