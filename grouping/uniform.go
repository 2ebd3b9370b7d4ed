package grouping

import (
	"sort"

	"grouping-server-go/models"
)

// TargetSizes returns the size of each of n groups for total students: the
// first total%n groups get one extra student.
func TargetSizes(total, n int) []int {
	q, r := total/n, total%n
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = q
		if i < r {
			sizes[i]++
		}
	}
	return sizes
}

// Uniform fills n groups to their TargetSizes, drawing from branches ordered
// by descending population (ties broken by branch code ascending).
//
// A cursor over the branch order stays on a branch while it still has
// students and moves on only when that branch is drained, wrapping around.
// Groups are filled in index order.
func Uniform(students []models.Student, n int) []models.Group {
	buckets := ByBranch(students)
	branches := Branches(students)
	sort.SliceStable(branches, func(i, j int) bool {
		return len(buckets[branches[i]]) > len(buckets[branches[j]])
	})

	remaining := len(students)
	cursor := 0
	groups := make([]models.Group, n)
	for gi, need := range TargetSizes(len(students), n) {
		members := make([]models.Student, 0, need)
		for need > 0 && remaining > 0 {
			b := branches[cursor%len(branches)]
			if len(buckets[b]) == 0 {
				cursor++
				continue
			}
			members = append(members, buckets[b][0])
			buckets[b] = buckets[b][1:]
			need--
			remaining--
		}
		groups[gi] = models.Group{Index: gi + 1, Students: members}
	}
	return groups
}
