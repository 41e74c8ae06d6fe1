// internal/csvcodec/codec.go
package csvcodec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"memberdesk/internal/roster"
)

var (
	ErrSchemaInvalid     = errors.New("file is missing required columns")
	ErrDuplicateInImport = errors.New("duplicate student numbers in file")
)

// Headers is the mandatory CSV header row, in export order.
var Headers = []string{"Control Number", "Name", "Student Number", "Year Level", "Fee", "Date"}

// Export renders members as CSV with RFC 4180 quoting. Absent fees serialize
// as 0 and absent text fields as empty strings.
func Export(members []roster.Member) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(Headers); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, m := range members {
		row := []string{
			m.ControlNumber,
			m.Name,
			m.StudentNumber,
			m.SchoolYear,
			formatFee(m.MembershipFee),
			m.RegistrationDate,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// Import parses CSV text into members. The first row is the header and maps
// column names to values for all subsequent rows, so column order does not
// matter. Rows missing a Name or Student Number are dropped silently. If any
// two surviving rows share a student number the whole import is rejected;
// nothing is ever partially applied.
//
// Control numbers are taken verbatim; fresh IDs are minted for every row.
func Import(text string) ([]roster.Member, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	rows := records[:0]
	for _, record := range records {
		if !blankRow(record) {
			rows = append(rows, record)
		}
	}
	if len(rows) == 0 {
		return nil, ErrSchemaInvalid
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range Headers {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaInvalid, strings.Join(missing, ", "))
	}

	members := make([]roster.Member, 0, len(rows)-1)
	seen := make(map[string]bool)
	var duplicates []string

	for _, row := range rows[1:] {
		field := func(name string) string {
			idx := columns[name]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		name := field("Name")
		studentNumber := field("Student Number")
		if name == "" || studentNumber == "" {
			continue
		}

		if seen[studentNumber] {
			duplicates = append(duplicates, studentNumber)
			continue
		}
		seen[studentNumber] = true

		members = append(members, roster.Member{
			ID:               uuid.NewString(),
			Name:             name,
			StudentNumber:    studentNumber,
			SchoolYear:       field("Year Level"),
			MembershipFee:    parseFee(field("Fee")),
			ControlNumber:    field("Control Number"),
			RegistrationDate: field("Date"),
		})
	}

	if len(duplicates) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateInImport, strings.Join(duplicates, ", "))
	}

	return members, nil
}

func formatFee(fee float64) string {
	return strconv.FormatFloat(fee, 'f', -1, 64)
}

func parseFee(s string) float64 {
	fee, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return fee
}

func blankRow(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
