package allot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryMale, ParseCategory("male"))
	assert.Equal(t, CategoryPwd, ParseCategory("pwd"))
	assert.Equal(t, CategoryFemale, ParseCategory("female"))
	assert.Equal(t, CategoryMale, ParseCategory(""))
	assert.Equal(t, CategoryMale, ParseCategory("other"))
}

func TestRunCapacityOneNearestWins(t *testing.T) {
	// Two students bidding for one seat; the closer one wins.
	students := []Student{
		{StudentID: "s2", Category: CategoryMale, SnappedNode: 2},
		{StudentID: "s3", Category: CategoryMale, SnappedNode: 3},
	}
	centres := []Centre{
		{CentreID: "C", MaxCapacity: 1, SnappedNode: 1},
	}
	table := map[int64]map[string]float64{
		2: {"C": 133},
		3: {"C": 200},
	}

	got := Run(students, centres, table)

	require.Len(t, got, 1)
	assert.Equal(t, "C", got["s2"])
	assert.Equal(t, 1, centres[0].CurrentLoad)
}

func TestRunTierOrdering(t *testing.T) {
	// One seat, three tiers: the male tier runs first even though the
	// female student is far closer.
	students := []Student{
		{StudentID: "f1", Category: CategoryFemale, SnappedNode: 10},
		{StudentID: "p1", Category: CategoryPwd, SnappedNode: 10},
		{StudentID: "m1", Category: CategoryMale, SnappedNode: 10},
	}
	centres := []Centre{
		{CentreID: "C", MaxCapacity: 1},
	}
	table := map[int64]map[string]float64{
		10: {"C": 100},
	}
	// Give the lower tiers cheaper costs via distinct snap vertices.
	students[0].SnappedNode = 11
	students[1].SnappedNode = 12
	table[11] = map[string]float64{"C": 10}
	table[12] = map[string]float64{"C": 50}

	got := Run(students, centres, table)

	require.Len(t, got, 1)
	assert.Equal(t, "C", got["m1"])
}

func TestRunTieBreakByStudentID(t *testing.T) {
	students := []Student{
		{StudentID: "sB", Category: CategoryMale, SnappedNode: 1},
		{StudentID: "sA", Category: CategoryMale, SnappedNode: 1},
	}
	centres := []Centre{
		{CentreID: "C", MaxCapacity: 1},
	}
	table := map[int64]map[string]float64{
		1: {"C": 42},
	}

	got := Run(students, centres, table)

	require.Len(t, got, 1)
	assert.Equal(t, "C", got["sA"])
}

func TestRunRespectsCapacity(t *testing.T) {
	var students []Student
	for i := 0; i < 10; i++ {
		students = append(students, Student{
			StudentID:   fmt.Sprintf("s%02d", i),
			Category:    CategoryMale,
			SnappedNode: 1,
		})
	}
	centres := []Centre{
		{CentreID: "C1", MaxCapacity: 3},
		{CentreID: "C2", MaxCapacity: 4},
	}
	table := map[int64]map[string]float64{
		1: {"C1": 10, "C2": 20},
	}

	got := Run(students, centres, table)

	// Load accounting matches the mapping (I1) and stays within caps (I2).
	assert.Len(t, got, 7)
	total := 0
	for i := range centres {
		assert.LessOrEqual(t, centres[i].CurrentLoad, centres[i].MaxCapacity)
		total += centres[i].CurrentLoad
	}
	assert.Equal(t, len(got), total)

	assert.Equal(t, 3, centres[0].CurrentLoad)
	assert.Equal(t, 4, centres[1].CurrentLoad)
}

func TestRunZeroCapacity(t *testing.T) {
	students := []Student{
		{StudentID: "s1", Category: CategoryMale, SnappedNode: 1},
	}
	centres := []Centre{
		{CentreID: "C", MaxCapacity: 0},
	}
	table := map[int64]map[string]float64{
		1: {"C": 5},
	}

	got := Run(students, centres, table)
	assert.Empty(t, got)
}

func TestRunEmptyInputs(t *testing.T) {
	assert.Empty(t, Run(nil, nil, nil))
	assert.Empty(t, Run(nil, []Centre{{CentreID: "C", MaxCapacity: 5}}, map[int64]map[string]float64{}))
	assert.Empty(t, Run([]Student{{StudentID: "s", SnappedNode: 1}}, nil, map[int64]map[string]float64{}))
}

func TestRunUnreachableStudentUnassigned(t *testing.T) {
	students := []Student{
		{StudentID: "s1", Category: CategoryMale, SnappedNode: 99}, // not in table
		{StudentID: "s2", Category: CategoryMale, SnappedNode: 1},
	}
	centres := []Centre{
		{CentreID: "C", MaxCapacity: 5},
	}
	table := map[int64]map[string]float64{
		1: {"C": 5},
	}

	got := Run(students, centres, table)

	require.Len(t, got, 1)
	_, ok := got["s1"]
	assert.False(t, ok)
}

func TestRunAssignedCostsAreFinite(t *testing.T) {
	students := []Student{
		{StudentID: "s1", Category: CategoryFemale, SnappedNode: 1},
		{StudentID: "s2", Category: CategoryPwd, SnappedNode: 2},
	}
	centres := []Centre{
		{CentreID: "C1", MaxCapacity: 2},
		{CentreID: "C2", MaxCapacity: 2},
	}
	table := map[int64]map[string]float64{
		1: {"C1": 30},
		2: {"C2": 60},
	}

	got := Run(students, centres, table)

	// Every committed assignment has a finite table entry (I3).
	for studentID, centreID := range got {
		var s *Student
		for i := range students {
			if students[i].StudentID == studentID {
				s = &students[i]
			}
		}
		require.NotNil(t, s)
		_, ok := table[s.SnappedNode][centreID]
		assert.True(t, ok)
	}
}

func TestRunDeterministic(t *testing.T) {
	var students []Student
	categories := []Category{CategoryMale, CategoryPwd, CategoryFemale}
	for i := 0; i < 30; i++ {
		students = append(students, Student{
			StudentID:   fmt.Sprintf("s%02d", i),
			Category:    categories[i%3],
			SnappedNode: int64(i%5 + 1),
		})
	}
	centres := func() []Centre {
		return []Centre{
			{CentreID: "C1", MaxCapacity: 8},
			{CentreID: "C2", MaxCapacity: 8},
			{CentreID: "C3", MaxCapacity: 8},
		}
	}
	table := map[int64]map[string]float64{
		1: {"C1": 10, "C2": 40, "C3": 70},
		2: {"C1": 20, "C2": 30, "C3": 60},
		3: {"C1": 30, "C2": 20, "C3": 50},
		4: {"C1": 40, "C2": 10, "C3": 40},
		5: {"C2": 5, "C3": 30},
	}

	first := Run(students, centres(), table)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Run(students, centres(), table))
	}
}

func TestRunGreedyNoImprovingSwapWithinTier(t *testing.T) {
	// Two students, two centres with one seat each. The greedy must not
	// produce an assignment that an endpoint swap would improve (I5).
	students := []Student{
		{StudentID: "a", Category: CategoryMale, SnappedNode: 1},
		{StudentID: "b", Category: CategoryMale, SnappedNode: 2},
	}
	centres := []Centre{
		{CentreID: "C1", MaxCapacity: 1},
		{CentreID: "C2", MaxCapacity: 1},
	}
	table := map[int64]map[string]float64{
		1: {"C1": 10, "C2": 100},
		2: {"C1": 20, "C2": 30},
	}

	got := Run(students, centres, table)

	require.Len(t, got, 2)
	assert.Equal(t, "C1", got["a"])
	assert.Equal(t, "C2", got["b"])

	// cost(a,C1)+cost(b,C2)=40, the swap would cost 120.
}
