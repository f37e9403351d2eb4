package importer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/database/repository"
)

func TestPaletteColorDeterministic(t *testing.T) {
	t.Parallel()
	require.Equal(t, paletteColor(repository.TypeExpense, 3), paletteColor(repository.TypeExpense, 3))
	require.NotEqual(t, paletteColor(repository.TypeExpense, 0), paletteColor(repository.TypeExpense, 1))
	require.NotEqual(t, paletteColor(repository.TypeExpense, 0), paletteColor(repository.TypeIncome, 0))
}

func TestPaletteColorIsHex(t *testing.T) {
	t.Parallel()
	for i := 0; i < 12; i++ {
		c := paletteColor(repository.TypeInvestment, i)
		require.Regexp(t, `^#[0-9a-f]{6}$`, c)
	}
}
