package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fmillerrzero/odcv-app/internal/model"
)

func sampleScores() []model.OpportunityScore {
	return []model.OpportunityScore{
		{
			BBL: "1010130029", Address: "1155 AVENUE OF THE AMERICAS",
			TotalScore: 95, SavingsScore: 50, DeploymentScore: 45,
			OpportunityLevel: model.OpportunityHigh, SavingsPotentialPercent: 30,
			AnnualSavingsDollars: 210000,
			Financials:           model.FinancialAnalysis{SimplePaybackYears: 0.1},
		},
		{BBL: "1000420031", Address: "80 MAIDEN LANE", OpportunityLevel: model.OpportunityLow},
	}
}

func TestWriteScores_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, formatTable, sampleScores()))

	out := buf.String()
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "1155 AVENUE OF THE AMERICAS")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "210000")
}

func TestWriteScores_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, formatCSV, sampleScores()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, scoreHeader, records[0])
	assert.Equal(t, []string{"1", "1010130029", "1155 AVENUE OF THE AMERICAS", "95", "50", "45", "HIGH", "30", "210000", "0.1"}, records[1])
	assert.Equal(t, "2", records[2][0])
}

func TestWriteScores_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, formatYAML, sampleScores()))

	var rows []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1010130029", rows[0]["bbl"])
	assert.Equal(t, 95, rows[0]["total_score"])
}

func TestWriteScores_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, formatJSON, sampleScores()))

	var got []model.OpportunityScore
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleScores()[0].BBL, got[0].BBL)
}

func TestWriteScores_UnknownFormat(t *testing.T) {
	err := writeScores(&bytes.Buffer{}, "xml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestWriteDocument_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	prof := model.BuildingProfile{BBL: "1010130029", SizeSqFt: model.Ptr(950000.0)}
	require.NoError(t, writeDocument(&buf, formatYAML, prof))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "1010130029", doc["bbl"])
	assert.EqualValues(t, 950000, doc["size_sqft"])
}
