// Package bigqueryblob holds the registry of BigQuery tables replicated to
// Azure Blob Storage. The registry is a CSV file maintained by the table
// owners; everything downstream (containers, datasets, pipelines) is derived
// from it.
package bigqueryblob

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/samsarahq/go/oops"
)

// FileFormat selects the blob output format of a table's copy activity.
type FileFormat string

const (
	FileFormatJSON    = FileFormat("json")
	FileFormatParquet = FileFormat("parquet")

	// DefaultFileFormat applies when the registry row leaves the format
	// column blank.
	DefaultFileFormat = FileFormatJSON
)

// ParseFileFormat parses a registry format cell. Empty means the default.
func ParseFileFormat(s string) (FileFormat, error) {
	switch FileFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultFileFormat, nil
	case FileFormatJSON:
		return FileFormatJSON, nil
	case FileFormatParquet:
		return FileFormatParquet, nil
	default:
		return "", oops.Errorf("unknown file format %q, valid values are json and parquet", s)
	}
}

// Table is one BigQuery table to replicate.
type Table struct {
	// Dataset is the BigQuery dataset the table lives in.
	Dataset string

	// TableName is the table within the dataset.
	TableName string

	// Format is the blob output format for this table.
	Format FileFormat

	// Description is free text carried from the registry for operator
	// context; it is not used by the generated definitions.
	Description string
}

// BigQueryTableID returns the dataset-qualified table identifier.
func (t *Table) BigQueryTableID() string {
	return t.Dataset + "." + t.TableName
}

// ContainerName returns the blob container the table is copied into.
func (t *Table) ContainerName() (string, error) {
	name, err := SanitizeContainerName(t.Dataset + "-" + t.TableName)
	if err != nil {
		return "", oops.Wrapf(err, "table %s", t.BigQueryTableID())
	}
	return name, nil
}

// ChildPipelineName returns the name of the per-table copy pipeline.
func (t *Table) ChildPipelineName() string {
	return fmt.Sprintf("copy_%s_%s", sanitizeResourceName(t.Dataset), sanitizeResourceName(t.TableName))
}

// SourceDatasetName returns the name of the BigQuery source dataset
// definition.
func (t *Table) SourceDatasetName() string {
	return fmt.Sprintf("bq_%s_%s", sanitizeResourceName(t.Dataset), sanitizeResourceName(t.TableName))
}

// SinkDatasetName returns the name of the blob sink dataset definition for
// the given format.
func (t *Table) SinkDatasetName(format FileFormat) string {
	return fmt.Sprintf("blob_%s_%s_%s", sanitizeResourceName(t.Dataset), sanitizeResourceName(t.TableName), format)
}

// maxContainerNameLength is the Azure blob container name limit.
const maxContainerNameLength = 63

// SanitizeContainerName maps an arbitrary table identifier onto a valid
// Azure blob container name: lowercase letters, digits and single dashes,
// 3-63 characters, no leading or trailing dash.
func SanitizeContainerName(name string) (string, error) {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		// Every run of invalid characters collapses to one dash.
		if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}

	sanitized := strings.TrimRight(b.String(), "-")
	if len(sanitized) > maxContainerNameLength {
		sanitized = strings.TrimRight(sanitized[:maxContainerNameLength], "-")
	}
	if len(sanitized) < 3 {
		return "", oops.Errorf("name %q sanitizes to %q, which is shorter than the 3 character container minimum", name, sanitized)
	}
	return sanitized, nil
}

// sanitizeResourceName keeps pipeline and dataset names inside the Data
// Factory naming rules by replacing disallowed characters with underscores.
func sanitizeResourceName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}

// Registry header columns. Dataset and table are required; format and
// description are optional.
const (
	columnDataset     = "dataset"
	columnTable       = "table"
	columnFormat      = "format"
	columnDescription = "description"
)

// LoadRegistry reads the table registry CSV. The file must have a header row
// naming at least the dataset and table columns, in any order. Rows are
// validated, deduplicated and returned sorted by dataset then table so that
// every generated artifact is stable regardless of CSV row order.
func LoadRegistry(path string) ([]*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, oops.Wrapf(err, "error opening registry file")
	}
	defer file.Close()

	tables, err := readRegistry(file)
	if err != nil {
		return nil, oops.Wrapf(err, "registry %s", path)
	}
	return tables, nil
}

func readRegistry(r io.Reader) ([]*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, oops.Wrapf(err, "error reading csv")
	}
	if len(records) == 0 {
		return nil, oops.Errorf("registry is empty, expected a header row naming the %s and %s columns", columnDataset, columnTable)
	}

	columns := make(map[string]int)
	for i, cell := range records[0] {
		if i == 0 {
			// Excel exports prefix the first cell with a UTF-8 BOM.
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		columns[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	for _, required := range []string{columnDataset, columnTable} {
		if _, ok := columns[required]; !ok {
			return nil, oops.Errorf("registry header is missing the %s column", required)
		}
	}

	cell := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var tables []*Table
	seen := make(map[string]int)
	containers := make(map[string]string)
	for i, record := range records[1:] {
		line := i + 2 // 1-based, after the header

		dataset := cell(record, columnDataset)
		tableName := cell(record, columnTable)
		if dataset == "" || tableName == "" {
			return nil, oops.Errorf("line %d: dataset and table must both be set", line)
		}

		format, err := ParseFileFormat(cell(record, columnFormat))
		if err != nil {
			return nil, oops.Wrapf(err, "line %d", line)
		}

		table := &Table{
			Dataset:     dataset,
			TableName:   tableName,
			Format:      format,
			Description: cell(record, columnDescription),
		}

		if prev, ok := seen[table.BigQueryTableID()]; ok {
			return nil, oops.Errorf("line %d: table %s already declared on line %d", line, table.BigQueryTableID(), prev)
		}
		seen[table.BigQueryTableID()] = line

		container, err := table.ContainerName()
		if err != nil {
			return nil, oops.Wrapf(err, "line %d", line)
		}
		if other, ok := containers[container]; ok {
			return nil, oops.Errorf("line %d: tables %s and %s both sanitize to container %s", line, table.BigQueryTableID(), other, container)
		}
		containers[container] = table.BigQueryTableID()

		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, oops.Errorf("registry has a header but no table rows")
	}

	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Dataset != tables[j].Dataset {
			return tables[i].Dataset < tables[j].Dataset
		}
		return tables[i].TableName < tables[j].TableName
	})

	return tables, nil
}
