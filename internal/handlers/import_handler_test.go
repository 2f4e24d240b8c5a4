package handlers

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomtrack/internal/repository"
)

func parseCSV(t *testing.T, raw string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestParseComponentRows(t *testing.T) {
	records := parseCSV(t, `code,name,unit_of_measure,cost_per_unit,reorder_point,lead_time_days,track_lots,supplier,notes
BOTTLE-16OZ,16oz Bottle,each,0.45,500,21,false,Acme Packaging,
CITRIC-ACID,Citric Acid,kg,3.20,100,30,true,,food grade
,Missing Code,each,1.00,,,,,
`)

	components, rowNums, rowErrors := ParseComponentRows(records)

	require.Len(t, components, 2, "two of three rows are valid")
	assert.Equal(t, []int{1, 2}, rowNums)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 3, rowErrors[0].Row, "row numbers are 1-indexed over data rows")
	assert.Equal(t, "code", rowErrors[0].Field)

	assert.Equal(t, "BOTTLE-16OZ", components[0].Code)
	assert.True(t, components[0].CostPerUnit.Equal(decimal.RequireFromString("0.45")))
	assert.Equal(t, 500, components[0].ReorderPoint)
	assert.False(t, components[0].TrackLots)

	assert.Equal(t, "kg", components[1].UnitOfMeasure)
	assert.True(t, components[1].TrackLots)
	require.NotNil(t, components[1].Notes)
	assert.Equal(t, "food grade", *components[1].Notes)
	assert.Nil(t, components[1].Supplier)
}

func TestParseComponentRowsBadNumbers(t *testing.T) {
	records := parseCSV(t, `code,name,cost_per_unit,reorder_point
OK-ROW,Fine,1.25,10
BAD-COST,Bad Cost,not-a-number,10
NEG-RP,Negative RP,1.00,-5
`)

	components, rowNums, rowErrors := ParseComponentRows(records)
	require.Len(t, components, 1)
	assert.Equal(t, []int{1}, rowNums)
	require.Len(t, rowErrors, 2)
	assert.Equal(t, "cost_per_unit", rowErrors[0].Field)
	assert.Equal(t, "reorder_point", rowErrors[1].Field)
}

func TestBulkRowErrorsKeepOriginalRows(t *testing.T) {
	// Data row 1 fails parsing, so only rows 2 and 3 reach the repository.
	// A bulk error on index 1 must point at file row 3, not row 2.
	records := parseCSV(t, `code,name
,Missing Code
GOOD-A,Alpha
GOOD-B,Beta
`)

	components, rowNums, rowErrors := ParseComponentRows(records)
	require.Len(t, components, 2)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 1, rowErrors[0].Row)
	require.Equal(t, []int{2, 3}, rowNums)

	mapped := bulkRowErrors([]repository.BulkCreateError{
		{Index: 1, Code: "CREATE_FAILED", Message: "insert failed"},
	}, rowNums)

	require.Len(t, mapped, 1)
	assert.Equal(t, 3, mapped[0].Row)
	assert.Equal(t, "insert failed", mapped[0].Message)
}

func TestParseComponentRowsEmptyFile(t *testing.T) {
	records := parseCSV(t, "code,name\n")
	components, _, rowErrors := ParseComponentRows(records)
	assert.Empty(t, components)
	require.Len(t, rowErrors, 1)
}

func TestParseSKURows(t *testing.T) {
	records := parseCSV(t, `code,name,notes
LEMONADE-12PK,Lemonade 12 Pack,flagship
,No Code,
LIMEADE-12PK,Limeade 12 Pack,
`)

	skus, rowNums, rowErrors := ParseSKURows(records)
	require.Len(t, skus, 2)
	assert.Equal(t, []int{1, 3}, rowNums, "skipped row 2 must not shift later rows")
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 2, rowErrors[0].Row)
	assert.Equal(t, "LEMONADE-12PK", skus[0].Code)
	assert.Nil(t, skus[1].Notes)
}

func TestParseInitialInventoryRows(t *testing.T) {
	records := parseCSV(t, `component_code,quantity,location_code,lot_code,expiry_date
BOTTLE-16OZ,1200,WH-MAIN,,
CITRIC-ACID,50,WH-MAIN,LOT-2026-03,2027-03-01
BAD-QTY,zero,,,
NO-QTY,,,,
`)

	rows, rowErrors := ParseInitialInventoryRows(records)

	require.Len(t, rows, 2)
	require.Len(t, rowErrors, 2)

	assert.Equal(t, "BOTTLE-16OZ", rows[0].ComponentCode)
	assert.Equal(t, 1200, rows[0].Quantity)
	assert.Empty(t, rows[0].LotCode)
	assert.Nil(t, rows[0].ExpiryDate)

	assert.Equal(t, "LOT-2026-03", rows[1].LotCode)
	require.NotNil(t, rows[1].ExpiryDate)
	assert.Equal(t, 2027, rows[1].ExpiryDate.Year())

	assert.Equal(t, 3, rowErrors[0].Row)
	assert.Equal(t, "quantity", rowErrors[0].Field)
	assert.Equal(t, 4, rowErrors[1].Row)
}

func TestParseInitialInventoryRowsBadExpiry(t *testing.T) {
	records := parseCSV(t, `component_code,quantity,lot_code,expiry_date
CITRIC-ACID,10,LOT-X,03/01/2027
`)

	rows, rowErrors := ParseInitialInventoryRows(records)
	assert.Empty(t, rows)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, "expiry_date", rowErrors[0].Field)
}

func TestHeaderIndexCaseInsensitive(t *testing.T) {
	idx := headerIndex([]string{"Code", " NAME ", "cost_per_unit"})
	assert.Equal(t, 0, idx["code"])
	assert.Equal(t, 1, idx["name"])
	assert.Equal(t, 2, idx["cost_per_unit"])
}
