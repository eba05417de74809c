package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable(t *testing.T) {
	t.Parallel()

	var (
		buf     = new(bytes.Buffer)
		columns = []Column{
			{Name: "id", Width: 10},
			{Name: "email", Width: 12},
		}
	)

	PrintTableHeader(buf, columns)
	PrintTableRow(buf, columns, []any{1, "bob@example.com"})
	PrintTableRow(buf, columns, []any{42, "al@x.io"})
	PrintTableEnd(buf, columns)

	expected := strings.Join([]string{
		"+---------------------------+",
		"| id         | email        |",
		"+---------------------------+",
		"| 1          | bob@exam ... |",
		"| 42         | al@x.io      |",
		"+---------------------------+",
		"",
	}, "\n")
	assert.Equal(t, expected, buf.String())
}

func TestComputeTableSize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		columns    []Column
		sizes      []int
		tableWidth int
	}{
		{"name wider than width", []Column{{Name: "username", Width: 2}}, []int{8}, 12},
		{"minimum width", []Column{{Name: "id", Width: 1}}, []int{4}, 8},
		{"capped width", []Column{{Name: "id", Width: 255}, {Name: "x", Width: 5}}, []int{40, 5}, 52},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sizes, tableWidth := computeTableSize(tc.columns)
			assert.Equal(t, tc.sizes, sizes)
			assert.Equal(t, tc.tableWidth, tableWidth)
		})
	}
}
