package service

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// EmployeeSheet is the sheet read by ReadEmployees.
const EmployeeSheet = "Employees"

var employeeHeaders = []string{"Name", "Email", "Phone"}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?\d+$`)
)

// ImportedEmployee is a valid row of the import workbook.
type ImportedEmployee struct {
	Row   int
	Name  string
	Email *string
	Phone *string
}

// EmployeeTemplate returns an empty import workbook.
func EmployeeTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EmployeeSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(EmployeeSheet, "A1", &employeeHeaders); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	if err := f.SetColWidth(EmployeeSheet, "A", "C", 30); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

// ReadEmployees parses the import workbook. Rows without a name, with a
// malformed email or phone, or repeating an email already known or seen
// earlier in the file are returned as incomplete row numbers.
func ReadEmployees(r io.Reader, existingEmails map[string]struct{}) ([]ImportedEmployee, []int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(EmployeeSheet)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading sheet %q", EmployeeSheet)
	}

	var employees []ImportedEmployee
	var incompleteRows []int
	localEmails := make(map[string]int)

	for i, row := range rows {
		if i == 0 {
			continue
		}

		line := i + 1
		name := norm.NFC.String(strings.TrimSpace(cell(row, 0)))
		email := strings.ToLower(width.Narrow.String(strings.TrimSpace(cell(row, 1))))
		phone := width.Narrow.String(strings.Join(strings.Fields(cell(row, 2)), ""))

		if name == "" && email == "" && phone == "" {
			continue
		}
		if name == "" {
			incompleteRows = append(incompleteRows, line)
			continue
		}
		if email != "" && !emailRegex.MatchString(email) {
			incompleteRows = append(incompleteRows, line)
			continue
		}
		if phone != "" && !phoneRegex.MatchString(phone) {
			incompleteRows = append(incompleteRows, line)
			continue
		}

		if email != "" {
			if _, exists := existingEmails[email]; exists {
				incompleteRows = append(incompleteRows, line)
				continue
			}
			if _, exists := localEmails[email]; exists {
				incompleteRows = append(incompleteRows, line)
				continue
			}
			localEmails[email] = line
		}

		employees = append(employees, ImportedEmployee{
			Row:   line,
			Name:  name,
			Email: nonEmpty(email),
			Phone: nonEmpty(phone),
		})
	}

	return employees, incompleteRows, nil
}

// FormatRows renders row numbers for an error message.
func FormatRows(rows []int) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprint(r))
	}
	return strings.Join(parts, ", ")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
