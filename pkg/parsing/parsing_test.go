package parsing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectFormat_ByMimeType(t *testing.T) {
	f, err := DetectFormat("application/pdf", nil)
	require.NoError(t, err)
	require.Equal(t, FormatPDF, f)
}

func TestDetectFormat_Unsupported(t *testing.T) {
	_, err := DetectFormat("text/plain", []byte("hello"))
	require.Error(t, err)
}

func TestWindow_SplitsLongTextAndKeepsTablesWhole(t *testing.T) {
	longText := strings.Repeat("word ", 2000)
	pageNum := 1
	pages := []PageText{
		{Text: longText, ChunkType: ChunkTypeText, PageNumber: &pageNum},
		{Text: "| a | b |\n| 1 | 2 |\n", ChunkType: ChunkTypeTable, PageNumber: &pageNum},
	}

	chunks := Window(pages)
	require.True(t, len(chunks) >= 2)

	var tableChunks int
	for _, c := range chunks {
		if c.ChunkType == ChunkTypeTable {
			tableChunks++
			require.Contains(t, c.Content, "| a | b |")
		}
	}
	require.Equal(t, 1, tableChunks)
}

func TestWindow_ChunkIndexIsDenseFromZero(t *testing.T) {
	pages := []PageText{{Text: "short text", ChunkType: ChunkTypeText}}
	chunks := Window(pages)
	for i, c := range chunks {
		require.Equal(t, i, c.ChunkIndex)
	}
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Greater(t, EstimateTokens("a reasonably long sentence of words"), 0)
}
