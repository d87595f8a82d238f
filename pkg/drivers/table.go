package drivers

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
)

// Table 带表头的字符串表格，csv 类型读写的对象.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Shape 行数和列数（不含表头）.
func (t Table) Shape() (int, int) {
	return len(t.Rows), len(t.Columns)
}

type csvDriver struct{}

func (csvDriver) Save(obj any, w io.Writer) error {
	var t Table

	switch v := obj.(type) {
	case *Table:
		t = *v
	case Table:
		t = v
	default:
		return pinerr.New(pinerr.Usage, "only drivers.Table can be saved as type %q, got %T", meta.TypeCSV, obj)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d fields, table has %d columns", i, len(row), len(t.Columns))
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func (csvDriver) Load(r io.Reader) (any, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	t := &Table{Rows: [][]string{}}
	if len(records) == 0 {
		return t, nil
	}

	t.Columns = records[0]
	t.Rows = append(t.Rows, records[1:]...)

	return t, nil
}
