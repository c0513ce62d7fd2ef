package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Date", "Subject"},
		Rows: []map[string]string{
			{"Date": "15.03", "Subject": "Math, advanced"},
			{"Date": "16.03"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "ignored")
	require.NoError(t, err)

	text := strings.TrimPrefix(string(out), "\uFEFF")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Equal(t, []string{"Date,Subject", `15.03,"Math, advanced"`, "16.03,"}, lines)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := (&CSVExporter{}).Render(Dataset{}, "")
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter("").Render(sampleDataset(), "Schedule")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
