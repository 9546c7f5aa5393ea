package parser

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sebmatecho/sipsa-tracker/utils"
)

type testSheet struct {
	name string
	rows [][]string
}

// buildWorkbook writes the given sheets, in order, into an in-memory .xlsx.
func buildWorkbook(t *testing.T, sheets ...testSheet) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			if len(row) == 0 {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := make([]interface{}, len(row))
			for c, v := range row {
				vals[c] = v
			}
			require.NoError(t, f.SetSheetRow(s.name, ref, &vals))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func quietLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard)
}
