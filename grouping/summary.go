package grouping

import "grouping-server-go/models"

// Summary table titles, used as the title line in the summary CSV.
const (
	RoundRobinTitle = "Round Robin Grouping Summary"
	UniformTitle    = "Uniform Grouping Summary"
)

// Result is one complete allocation run over a roster.
type Result struct {
	Students   []models.Student
	Branches   []string
	RoundRobin []models.Group
	Uniform    []models.Group
	Summary    models.Summary
}

// Allocate runs both strategies over students and summarises them.
func Allocate(students []models.Student, n int) Result {
	branches := Branches(students)
	rr := RoundRobin(students, n)
	uni := Uniform(students, n)
	return Result{
		Students:   students,
		Branches:   branches,
		RoundRobin: rr,
		Uniform:    uni,
		Summary:    Summarize(rr, uni, branches),
	}
}

// Summarize builds one table per strategy. Every branch in branches gets a
// count for every group, zero when absent.
func Summarize(roundRobin, uniform []models.Group, branches []string) models.Summary {
	return models.Summary{
		RoundRobin: SummaryTable(RoundRobinTitle, roundRobin, branches),
		Uniform:    SummaryTable(UniformTitle, uniform, branches),
	}
}

// SummaryTable counts each group's students per branch.
func SummaryTable(title string, groups []models.Group, branches []string) models.SummaryTable {
	rows := make([]models.SummaryRow, 0, len(groups))
	for _, g := range groups {
		counts := make(map[string]int, len(branches))
		for _, b := range branches {
			counts[b] = 0
		}
		for _, s := range g.Students {
			counts[s.Branch]++
		}
		rows = append(rows, models.SummaryRow{
			Group:  g.Label(),
			Counts: counts,
			Total:  len(g.Students),
		})
	}
	return models.SummaryTable{Title: title, Branches: branches, Rows: rows}
}
