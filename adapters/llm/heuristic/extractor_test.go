package heuristic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceplan/domain/brief"
)

func extract(t *testing.T, text string, cls brief.Classification) *brief.Extraction {
	t.Helper()
	got, err := NewExtractor().Extract(context.Background(), text, cls)
	require.NoError(t, err)
	return got
}

func TestExtractMarkdownTable(t *testing.T) {
	text := `| Space | Area | Qty |
|-------|------|-----|
| Open Office | 6 | 40 |
| Meeting Room | 20 | 4 |
Total: 320 m²`

	got := extract(t, text, brief.Classification{})
	require.Len(t, got.Programs, 2)
	assert.Equal(t, "Open Office", got.Programs[0].Name)
	assert.Equal(t, 6.0, got.Programs[0].Area)
	assert.Equal(t, 40, got.Programs[0].Count)
	assert.Equal(t, 4, got.Programs[1].Count)
}

func TestExtractDelimitedRows(t *testing.T) {
	got := extract(t, "Lobby, 80, 1\nWorkshop; 120; 2", brief.Classification{})
	require.Len(t, got.Programs, 2)
	assert.Equal(t, 80.0, got.Programs[0].Area)
	assert.Equal(t, 2, got.Programs[1].Count)
}

func TestExtractFreeFormWithCountSuffix(t *testing.T) {
	got := extract(t, "Meeting Room 20 m² x 4\nLobby - 80 sqm", brief.Classification{})
	require.Len(t, got.Programs, 2)
	assert.Equal(t, "Meeting Room", got.Programs[0].Name)
	assert.Equal(t, 4, got.Programs[0].Count)
	assert.Equal(t, "Lobby", got.Programs[1].Name)
	assert.Equal(t, 1, got.Programs[1].Count)
}

func TestExtractGroupHeadings(t *testing.T) {
	text := `Public:
Lobby 80
Cafe 60

Work:
Open Office 240`

	got := extract(t, text, brief.Classification{})
	require.Len(t, got.Programs, 3)
	assert.Equal(t, "Public", got.Programs[0].GroupHint)
	assert.Equal(t, "Public", got.Programs[1].GroupHint)
	assert.Equal(t, "Work", got.Programs[2].GroupHint)
}

func TestExtractSkipsNoiseAndTotals(t *testing.T) {
	text := `Lobby 80
Subtotal 80
call me at +1 555 123 4567
see https://example.com/floorplans 3`

	got := extract(t, text, brief.Classification{})
	require.Len(t, got.Programs, 1)
	assert.Equal(t, "Lobby", got.Programs[0].Name)
}

func TestExtractConvertsImperial(t *testing.T) {
	cls := brief.Classification{Signals: brief.Signals{UnitSystem: brief.UnitImperial}}
	got := extract(t, "Lobby 1000 sq ft", cls)
	require.Len(t, got.Programs, 1)
	assert.InDelta(t, 92.9, got.Programs[0].Area, 0.1)
	assert.Contains(t, got.Programs[0].Note, "converted")
}

func TestExtractNothingUsable(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "nothing here but words", brief.Classification{})
	assert.Error(t, err)
}
