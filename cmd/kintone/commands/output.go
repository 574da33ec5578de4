package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

func writeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode output as JSON: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode output as YAML: %w", err)
	}

	return nil
}

// render writes data as JSON or YAML, or calls table for the table format.
func render(cmd *cobra.Command, data interface{}, table func(w io.Writer) error) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return writeJSON(cmd.OutOrStdout(), data)
	case constants.FormatYAML:
		return writeYAML(cmd.OutOrStdout(), data)
	default:
		return table(cmd.OutOrStdout())
	}
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(toAny(header)...)

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderProperties(w io.Writer, rows [][]string) error {
	return renderTable(w, []string{"Property", "Value"}, rows)
}

// renderRecords prints one row per record. Without explicit fields, columns
// are $id followed by every other field code in alphabetical order.
func renderRecords(w io.Writer, records []kintone.Record, fields []string) error {
	columns := recordColumns(records, fields)

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(columns))
		for i, code := range columns {
			row[i] = cellValue(record[code].Value)
		}

		rows = append(rows, row)
	}

	return renderTable(w, columns, rows)
}

func recordColumns(records []kintone.Record, fields []string) []string {
	if len(fields) > 0 {
		return fields
	}

	seen := make(map[string]struct{})

	for _, record := range records {
		for code := range record {
			if code != kintone.FieldID {
				seen[code] = struct{}{}
			}
		}
	}

	columns := make([]string, 0, len(seen)+1)
	for code := range seen {
		columns = append(columns, code)
	}

	sort.Strings(columns)

	return slices.Insert(columns, 0, kintone.FieldID)
}

func cellValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool, float64, int, int64:
		return fmt.Sprint(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}

func formatValue(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

func maskSecret(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return constants.MaskedSecret
}
