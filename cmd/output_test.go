package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

func sampleOutput() contractx.EntityOutput {
	founded := contractx.NewDataPoint("1998", 0.8)
	return contractx.EntityOutput{
		EntityType:            contractx.EntityCompany,
		Data:                  contractx.CompanyRecord{Founded: &founded, AdditionalInfo: map[string]contractx.DataPoint{}},
		QueryTimestamp:        "2026-01-01T00:00:00Z",
		ProcessingTimeSeconds: 1.25,
	}
}

func TestWriteOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, sampleOutput(), "json"))
	assert.Contains(t, buf.String(), `"entity_type": "company"`)
	assert.Contains(t, buf.String(), `"founded": {`)
}

func TestWriteOutputYAMLKeepsJSONNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, sampleOutput(), "YAML"))
	out := buf.String()
	assert.Contains(t, out, "entity_type: company")
	assert.Contains(t, out, "processing_time_seconds: 1.25")
	assert.True(t, strings.Contains(out, "value: \"1998\""), out)
}

func TestWriteOutputUnknownFormat(t *testing.T) {
	assert.Error(t, writeOutput(&bytes.Buffer{}, sampleOutput(), "xml"))
}
