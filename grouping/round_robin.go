package grouping

import "grouping-server-go/models"

// RoundRobin distributes students across n groups branch by branch.
//
// The algorithm:
//  1. Bucket students by branch, branches in ascending order
//  2. Deal each branch's students to groups using position-in-branch % n
//  3. Interleave every group's members by branch so consecutive members
//     come from different branches whenever possible
//
// n must be at least 1; callers validate it with ValidateGroupCount. When n
// exceeds the roster size the trailing groups are empty.
func RoundRobin(students []models.Student, n int) []models.Group {
	members := make([][]models.Student, n)
	buckets := ByBranch(students)

	for _, branch := range Branches(students) {
		for i, s := range buckets[branch] {
			members[i%n] = append(members[i%n], s)
		}
	}

	groups := make([]models.Group, n)
	for i := range members {
		groups[i] = models.Group{Index: i + 1, Students: Interleave(members[i])}
	}
	return groups
}

// Interleave reorders students by repeatedly taking one student from each
// branch, branches visited in ascending order, until none are left. Order
// within a branch is preserved.
func Interleave(students []models.Student) []models.Student {
	buckets := ByBranch(students)
	branches := Branches(students)

	out := make([]models.Student, 0, len(students))
	for len(out) < len(students) {
		for _, b := range branches {
			if len(buckets[b]) == 0 {
				continue
			}
			out = append(out, buckets[b][0])
			buckets[b] = buckets[b][1:]
		}
	}
	return out
}
