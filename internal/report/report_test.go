package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybsops/ordertrack/internal/track"
)

var stations = []string{"Indigo", "Laminate", "Die Cutting ABG", "Machine Glue", "Shipping"}

func hours(h float64) *float64 { return &h }

func sampleRecords() []track.LeadTime {
	return []track.LeadTime{
		{
			OrderNum: "1001",
			Durations: map[string]*float64{
				"Indigo":   hours(2.0),
				"Laminate": hours(3.0),
			},
			Total: 5.0,
		},
		{
			OrderNum: "1002",
			Durations: map[string]*float64{
				"Laminate": hours(1.5),
			},
			Total: 1.5,
		},
	}
}

func TestWrite_HeaderAndRowLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(stations)
	require.NoError(t, w.Write(&buf, sampleRecords()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "Job,Indigo,Laminate,Die Cutting ABG,Machine Glue,Shipping,Total Hours", lines[0])
	// Two decimals everywhere; absent durations render as empty fields.
	assert.Equal(t, "1001,2.00,3.00,,,,5.00", lines[1])
	assert.Equal(t, "1002,,1.50,,,,1.50", lines[2])
}

func TestWrite_NoRecordsStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(stations)
	require.NoError(t, w.Write(&buf, nil))

	assert.Equal(t, "Job,Indigo,Laminate,Die Cutting ABG,Machine Glue,Shipping,Total Hours\n", buf.String())
}

func TestWrite_NegativeDurationRendered(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter([]string{"Indigo", "Laminate"})
	records := []track.LeadTime{{
		OrderNum:  "4001",
		Durations: map[string]*float64{"Indigo": hours(-2.0)},
		Total:     -2.0,
	}}
	require.NoError(t, w.Write(&buf, records))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "4001,-2.00,,-2.00", lines[1])
}

func TestWrite_Golden(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(stations)
	require.NoError(t, w.Write(&buf, sampleRecords()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "leadtimes", buf.Bytes())
}

func TestWriteFile_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "out.csv")
	w := NewCSVWriter(stations)
	require.NoError(t, w.WriteFile(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Job,"))
}
