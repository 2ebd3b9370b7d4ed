package models

import "strconv"

// Student represents one roster row
type Student struct {
	Roll   string `json:"roll"`   // Unique roll number (e.g., 22CS001)
	Name   string `json:"name"`   // Student name
	Email  string `json:"email"`  // Contact email
	Branch string `json:"branch"` // Branch code derived from Roll
}

// Group is an ordered list of students assigned together under one strategy.
// Index is 1-based.
type Group struct {
	Index    int       `json:"index"`
	Students []Student `json:"students"`
}

// Label returns the summary label of the group, e.g. "G1"
func (g Group) Label() string {
	return "G" + strconv.Itoa(g.Index)
}

// SummaryRow holds the per-branch counts of a single group
type SummaryRow struct {
	Group  string         `json:"group"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// SummaryTable is the per-group breakdown for one strategy
type SummaryTable struct {
	Title    string       `json:"title"`
	Branches []string     `json:"branches"` // Column order, sorted
	Rows     []SummaryRow `json:"rows"`
}

// Summary carries both strategy tables
type Summary struct {
	RoundRobin SummaryTable `json:"roundRobin"`
	Uniform    SummaryTable `json:"uniform"`
}
