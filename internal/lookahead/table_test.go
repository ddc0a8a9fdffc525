package lookahead

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, sampleResults(), 15, 20))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, tableHeaders, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "True")
	assert.Contains(t, lines[1], "ema, rsi")
	assert.Contains(t, lines[2], "False")
	assert.Contains(t, lines[3], "not enough trades caught (10/20). Test failed.")
	assert.Contains(t, lines[4], "error while checking")
}

func TestRenderTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, nil, 10, 20))
	assert.Equal(t, strings.Join(tableHeaders, "  ")+"\n", buf.String())
}
