package grouping

import (
	"sort"
	"strings"

	"grouping-server-go/models"
)

// UnknownBranch is assigned when a roll number carries no letters.
const UnknownBranch = "UNKNOWN"

// ExtractBranch returns the first run of ASCII letters in roll, upper-cased.
func ExtractBranch(roll string) string {
	start := strings.IndexFunc(roll, isLetter)
	if start < 0 {
		return UnknownBranch
	}
	end := strings.IndexFunc(roll[start:], func(r rune) bool { return !isLetter(r) })
	if end < 0 {
		return strings.ToUpper(roll[start:])
	}
	return strings.ToUpper(roll[start : start+end])
}

func isLetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// NewStudent builds a Student with its Branch populated from roll.
func NewStudent(roll, name, email string) models.Student {
	return models.Student{
		Roll:   roll,
		Name:   name,
		Email:  email,
		Branch: ExtractBranch(roll),
	}
}

// Branches returns the distinct branches of the roster in ascending order.
func Branches(students []models.Student) []string {
	seen := make(map[string]struct{})
	branches := []string{}
	for _, s := range students {
		if _, ok := seen[s.Branch]; ok {
			continue
		}
		seen[s.Branch] = struct{}{}
		branches = append(branches, s.Branch)
	}
	sort.Strings(branches)
	return branches
}

// ByBranch returns each branch's students in original roster order,
// keyed by branch code.
func ByBranch(students []models.Student) map[string][]models.Student {
	buckets := make(map[string][]models.Student)
	for _, s := range students {
		buckets[s.Branch] = append(buckets[s.Branch], s)
	}
	return buckets
}
