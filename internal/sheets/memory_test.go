package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDocumentSheets(t *testing.T) {
	ctx := context.Background()
	doc := NewMemoryDocument()

	_, err := doc.Sheet(ctx, "WEBD")
	require.ErrorIs(t, err, ErrSheetNotFound)

	sheet, err := doc.AddSheet(ctx, "WEBD", []string{"Name", "Email"})
	require.NoError(t, err)
	assert.Equal(t, "WEBD", sheet.Title())

	_, err = doc.AddSheet(ctx, "WEBD", nil)
	require.Error(t, err)

	got, err := doc.Sheet(ctx, "WEBD")
	require.NoError(t, err)
	header, err := got.Header(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Email"}, header)
}

func TestMemorySheetRows(t *testing.T) {
	ctx := context.Background()
	doc := NewMemoryDocument()

	sheet, err := doc.AddSheet(ctx, "DSA", []string{"Name", "Points"})
	require.NoError(t, err)

	require.NoError(t, sheet.AppendRow(ctx, map[string]string{"Name": "Ann", "Points": "10", "Unknown": "x"}))
	require.NoError(t, sheet.AppendRow(ctx, map[string]string{"Name": "Bob"}))

	// Header grows after rows exist; old rows are padded
	require.NoError(t, sheet.SetHeader(ctx, []string{"Name", "Points", "Task: A"}))

	rows, err := sheet.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, 3, rows[1].Number)
	assert.Equal(t, []string{"Ann", "10", ""}, rows[0].Values())
	assert.Equal(t, "", rows[1].Get("Points"))

	assert.True(t, rows[1].Set("Task: A", "✅"))
	assert.False(t, rows[1].Set("Missing", "x"))
	require.NoError(t, sheet.SaveRows(ctx, []*Row{rows[1]}))

	_, data, ok := doc.Snapshot("DSA")
	require.True(t, ok)
	assert.Equal(t, []string{"Bob", "", "✅"}, data[1])

	// Rows are copies until saved
	rows[0].Set("Name", "Changed")
	_, data, _ = doc.Snapshot("DSA")
	assert.Equal(t, "Ann", data[0][0])

	require.Error(t, sheet.SaveRows(ctx, []*Row{NewRow(9, rows[0].Header(), nil)}))
}

func TestMemoryDocumentFailure(t *testing.T) {
	ctx := context.Background()
	doc := NewMemoryDocument()
	sheet, err := doc.AddSheet(ctx, "AIML", []string{"Name"})
	require.NoError(t, err)

	boom := errors.New("quota exceeded")
	doc.SetFailure(boom)

	_, err = doc.Sheet(ctx, "AIML")
	require.ErrorIs(t, err, boom)
	_, err = sheet.Rows(ctx)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, doc.Ping(ctx), boom)

	doc.SetFailure(nil)
	require.NoError(t, doc.Ping(ctx))
}

func TestRowHelpers(t *testing.T) {
	header := []string{"A", "B", "C"}
	assert.Equal(t, []string{"1", "", "3"}, ValuesFor(header, map[string]string{"A": "1", "C": "3", "D": "4"}))

	row := NewRow(2, header, []string{"x"})
	assert.Equal(t, []string{"x", "", ""}, row.Values())
	assert.Equal(t, "", row.Get("missing"))
}
