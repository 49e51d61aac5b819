package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecawe/cellar/internal/models"
)

func TestResolveCreatesOnce(t *testing.T) {
	conn := openTestDB(t)
	svc := NewCatalogService(conn)

	first, err := svc.Resolve("Barolo Riserva", "Conterno", 2016, WineAttrs{Type: models.WineRed, Region: "Piedmont", Country: "Italy"})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := svc.Resolve("Barolo Riserva", "Conterno", 2016, WineAttrs{Type: models.WineWhite})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same identity must resolve to the same row")
	// The original attributes win; a later resolve never rewrites them.
	assert.Equal(t, models.WineRed, second.Type)

	var count int64
	conn.Model(&models.Wine{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestResolveDistinguishesVintage(t *testing.T) {
	conn := openTestDB(t)
	svc := NewCatalogService(conn)

	a, err := svc.Resolve("Barolo", "Conterno", 2016, WineAttrs{Type: models.WineRed})
	require.NoError(t, err)
	b, err := svc.Resolve("Barolo", "Conterno", 2017, WineAttrs{Type: models.WineRed})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
