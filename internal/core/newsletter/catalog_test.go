package newsletter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_SortedAndComplete(t *testing.T) {
	entries := Catalog()
	require.Len(t, entries, 11)

	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Operation, entries[i].Operation)
	}

	ids := make(map[QueryID]bool)
	for _, e := range entries {
		assert.NotEmpty(t, e.QueryID)
		assert.False(t, ids[e.QueryID], "query id %s used twice", e.QueryID)
		ids[e.QueryID] = true
	}
}

func TestLookupOperation(t *testing.T) {
	id, err := LookupOperation("follow")
	require.NoError(t, err)
	assert.Equal(t, QueryFollow, id)

	_, err = LookupOperation("subscribe")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}
