package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue).PaddingRight(2)
	tableCell   = lipgloss.NewStyle().PaddingRight(2)
	tableEmpty  = tableCell.Foreground(ColorDimGray)
)

// Table is a borderless, kubectl-style listing. Cells holding "-" are
// dimmed.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Row appends a row and returns the table.
func (t *Table) Row(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) String() string {
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
		BorderHeader(false).BorderColumn(false).
		Headers(t.headers...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeader
			case row >= 0 && row < len(t.rows) && col < len(t.rows[row]) && t.rows[row][col] == "-":
				return tableEmpty
			default:
				return tableCell
			}
		})
	return tbl.String()
}
