package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecawe/cellar/internal/models"
)

func TestExportIncludesEmptyItems(t *testing.T) {
	conn := openTestDB(t)
	svc := NewCellarService(conn)
	owner := createTestUser(t, conn, "owner@test.local")

	item := addBottle(t, svc, owner.ID, "Crozes Hermitage", 1)
	_, err := svc.Consume(owner.ID, item.ID)
	require.NoError(t, err)

	out, err := svc.ExportCSV(owner.ID)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2, "header plus the consumed bottle")
	assert.Equal(t, "Name,Producer,Vintage,Type,Region,Country,Quantity,Price", lines[0])
	assert.Contains(t, lines[1], "Crozes Hermitage")
	assert.Contains(t, lines[1], ",0,", "quantity 0 survives the export")
}

func TestImportSkipsBadRows(t *testing.T) {
	conn := openTestDB(t)
	svc := NewCellarService(conn)
	owner := createTestUser(t, conn, "owner@test.local")

	csvData := strings.Join([]string{
		"Name,Producer,Vintage,Type,Region,Country,Quantity,Price",
		"Good Wine,Maker,2019,RED,Rhone,France,3,12.50",
		",Maker,2019,RED,,,1,0",           // missing name
		"Bad Vintage,Maker,abcd,RED,,,1,0", // unparsable vintage
		"Odd Type,Maker,2020,PURPLE,,,2,5", // unknown type falls back to OTHER
	}, "\n")

	report, err := svc.ImportCSV(owner.ID, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, report.Errors, 2)

	items, err := svc.ListAll(owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.False(t, item.IsVisible, "imported bottles start hidden")
		if item.Wine.Name == "Odd Type" {
			assert.Equal(t, models.WineOther, item.Wine.Type)
		}
	}
}

func TestImportMissingColumn(t *testing.T) {
	conn := openTestDB(t)
	svc := NewCellarService(conn)
	owner := createTestUser(t, conn, "owner@test.local")

	_, err := svc.ImportCSV(owner.ID, strings.NewReader("Name,Vintage\nWine,2019\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "producer")
}

func TestExportImportRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	svc := NewCellarService(conn)
	owner := createTestUser(t, conn, "owner@test.local")
	twin := createTestUser(t, conn, "twin@test.local")

	addBottle(t, svc, owner.ID, "Saint Joseph", 2)

	out, err := svc.ExportCSV(owner.ID)
	require.NoError(t, err)

	report, err := svc.ImportCSV(twin.ID, strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	items, err := svc.ListAll(twin.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Saint Joseph", items[0].Wine.Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.InDelta(t, 25, items[0].BuyPrice, 0.001)
}
