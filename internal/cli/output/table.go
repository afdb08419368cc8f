package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter lays out OData collections, single entities and Go
// structs as aligned columns. Nested values are summarized.
type TableFormatter struct {
	NoHeaders bool
	// Columns restricts and orders the columns of entity tables.
	Columns []string
}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	var t *Table
	switch v := data.(type) {
	case *Table:
		t = v
	case Table:
		t = &v
	default:
		var err error
		if raw, ok := rawJSON(data); ok {
			t, err = f.entityTable(raw)
		} else {
			t, err = structTable(reflect.ValueOf(data))
		}
		if err != nil {
			return (&JSONFormatter{}).Format(w, data)
		}
	}
	return t.render(w, f.NoHeaders)
}

// entityTable builds a table from {"value": [...]}, a JSON array or a
// single JSON object.
func (f *TableFormatter) entityTable(raw json.RawMessage) (*Table, error) {
	if len(raw) == 0 {
		return &Table{}, nil
	}

	var rows []map[string]any
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Value) > 0 {
		if err := json.Unmarshal(envelope.Value, &rows); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(raw, &rows); err != nil {
		var one map[string]any
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return keyValueTable(one), nil
	}

	cols := f.Columns
	if len(cols) == 0 {
		cols = columnsOf(rows)
	}
	t := &Table{Headers: cols}
	for _, r := range rows {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(r[c])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// columnsOf returns the scalar fields of the first row, sorted, skipping
// odata.* annotations.
func columnsOf(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	var cols []string
	for k, v := range rows[0] {
		if strings.HasPrefix(k, "odata.") || strings.Contains(k, "@odata") {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func keyValueTable(m map[string]any) *Table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, k := range keys {
		t.AddRow(k, cell(m[k]))
	}
	return t
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", x), "0"), ".")
	case []any:
		return fmt.Sprintf("[%d items]", len(x))
	case map[string]any:
		return fmt.Sprintf("{%d keys}", len(x))
	default:
		return fmt.Sprint(x)
	}
}

// structTable renders a struct as FIELD/VALUE rows, or a slice of
// structs as one row per element. Column names come from json tags.
func structTable(v reflect.Value) (*Table, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return &Table{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		for i, name := range fieldNames(v.Type()) {
			if name != "" {
				t.AddRow(name, formatValue(v.Field(i)))
			}
		}
		return t, nil
	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil, fmt.Errorf("unsupported element type %s", elem)
		}
		names := fieldNames(elem)
		t := &Table{}
		for _, n := range names {
			if n != "" {
				t.Headers = append(t.Headers, strings.ToUpper(n))
			}
		}
		for i := 0; i < v.Len(); i++ {
			e := reflect.Indirect(v.Index(i))
			var row []string
			for j, n := range names {
				if n != "" {
					row = append(row, formatValue(e.Field(j)))
				}
			}
			t.Rows = append(t.Rows, row)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", v.Kind())
	}
}

// fieldNames returns the display name per field index, "" for skipped
// fields.
func fieldNames(t reflect.Type) []string {
	names := make([]string, t.NumField())
	for i := range names {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		names[i] = name
	}
	return names
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return "-"
	}
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format(time.RFC3339)
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "-"
		}
		return v.String()
	case reflect.Slice, reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Table is tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) render(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
