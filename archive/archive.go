package archive

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"grouping-server-go/grouping"
	"grouping-server-go/models"
)

// Entry names inside the archive.
const (
	BranchDir     = "branches"
	RoundRobinDir = "round_robin"
	UniformDir    = "uniform"
	SummaryFile   = "grouping_summary.csv"

	// FileName is the suggested download name.
	FileName = "student_groups.zip"
)

// StudentHeader is the header row of every branch and group file.
var StudentHeader = []string{"Roll", "Name", "Email", "Branch"}

// Build allocates students into n groups with both strategies and returns
// the zipped result. Nothing is returned unless every entry was written.
func Build(students []models.Student, n int) ([]byte, error) {
	return Encode(grouping.Allocate(students, n))
}

// Encode zips an allocation result.
func Encode(res grouping.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the archive for res to w. The layout is:
//
//	branches/<BRANCH>.csv
//	round_robin/group_<i>.csv
//	uniform/group_<i>.csv
//	grouping_summary.csv
func Write(w io.Writer, res grouping.Result) error {
	zw := zip.NewWriter(w)

	byBranch := grouping.ByBranch(res.Students)
	for _, b := range res.Branches {
		if err := writeEntry(zw, fmt.Sprintf("%s/%s.csv", BranchDir, b), func(w io.Writer) error {
			return WriteStudents(w, byBranch[b])
		}); err != nil {
			return err
		}
	}

	if err := writeGroups(zw, RoundRobinDir, res.RoundRobin); err != nil {
		return err
	}
	if err := writeGroups(zw, UniformDir, res.Uniform); err != nil {
		return err
	}

	if err := writeEntry(zw, SummaryFile, func(w io.Writer) error {
		return WriteSummary(w, res.Summary)
	}); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zip writer: %w", err)
	}
	return nil
}

func writeGroups(zw *zip.Writer, dir string, groups []models.Group) error {
	for _, g := range groups {
		name := fmt.Sprintf("%s/group_%d.csv", dir, g.Index)
		if err := writeEntry(zw, name, func(w io.Writer) error {
			return WriteStudents(w, g.Students)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, fill func(io.Writer) error) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", name, err)
	}
	if err := fill(fw); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteStudents writes students as CSV with StudentHeader.
func WriteStudents(w io.Writer, students []models.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StudentHeader); err != nil {
		return err
	}
	for _, s := range students {
		if err := cw.Write([]string{s.Roll, s.Name, s.Email, s.Branch}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes both summary tables, each under its title line,
// separated by a blank line.
func WriteSummary(w io.Writer, summary models.Summary) error {
	if err := writeTable(w, summary.RoundRobin); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return writeTable(w, summary.Uniform)
}

func writeTable(w io.Writer, table models.SummaryTable) error {
	if _, err := io.WriteString(w, table.Title+"\n"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	for _, record := range TableRecords(table) {
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TableRecords lays a summary table out as rows: the header
// Group,<branches...>,Total followed by one row per group.
func TableRecords(table models.SummaryTable) [][]string {
	header := make([]string, 0, len(table.Branches)+2)
	header = append(header, "Group")
	header = append(header, table.Branches...)
	header = append(header, "Total")

	records := [][]string{header}
	for _, row := range table.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Group)
		for _, b := range table.Branches {
			record = append(record, strconv.Itoa(row.Counts[b]))
		}
		record = append(record, strconv.Itoa(row.Total))
		records = append(records, record)
	}
	return records
}
