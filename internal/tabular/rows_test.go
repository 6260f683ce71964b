package tabular

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examportal/exam-portal-api/pkg/export"
)

func TestParseWorkbook_CSV(t *testing.T) {
	payload := []byte("Username,Password,Name\nalice,pw1,Alice\n,,\nbob,pw2\n")

	rows, err := ParseWorkbook(payload)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Get("Username"))
	assert.Equal(t, "Alice", rows[0].Get("name"))
	// Short record pads missing trailing cells.
	assert.Equal(t, "bob", rows[1].Get("Username"))
	assert.Equal(t, "", rows[1].Get("Name"))
}

func TestParseWorkbook_SkipsLeadingBlankLinesBeforeHeader(t *testing.T) {
	payload := []byte(",,\nUsername,Password\nalice,pw\n")

	rows, err := ParseWorkbook(payload)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Get("Username"))
}

func TestParseWorkbook_XLSXRoundTrip(t *testing.T) {
	exporter := export.NewXLSXExporter()
	payload, err := exporter.Render(export.Dataset{
		Name:    "Users",
		Headers: []string{"Username", "Password"},
		Rows: []map[string]string{
			{"Username": "alice", "Password": "pw"},
		},
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, xlsxMagic))

	rows, err := ParseWorkbook(payload)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Get("Username"))
	assert.Equal(t, "pw", rows[0].Get("Password"))
}

func TestParseWorkbook_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"too small":       []byte("ab"),
		"bad zip archive": append(append([]byte{}, xlsxMagic...), []byte("not actually a workbook")...),
		"ragged quotes":   []byte("a,b\n\"unterminated\n"),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWorkbook(payload)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestRowGet_CaseInsensitive(t *testing.T) {
	row := Row{"ExamID": "math-2024"}

	assert.Equal(t, "math-2024", row.Get("ExamID"))
	assert.Equal(t, "math-2024", row.Get("examid"))
	assert.Equal(t, "", row.Get("Subject"))
}
