package allot

// Category is a student priority band. Bands compete for centres in a
// fixed order: male, then pwd, then female.
type Category string

const (
	CategoryMale   Category = "male"
	CategoryPwd    Category = "pwd"
	CategoryFemale Category = "female"
)

// ParseCategory normalises a category string; anything unrecognised is male.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryPwd, CategoryFemale:
		return Category(s)
	}
	return CategoryMale
}

// Student is one geolocated candidate to be assigned. SnappedNode is -1
// until the spatial index resolves it.
type Student struct {
	StudentID   string
	Lat         float64
	Lon         float64
	Category    Category
	SnappedNode int64
}

// Centre is a destination with finite capacity. The feature flags are
// reserved for future eligibility rules; the matcher ignores them today.
type Centre struct {
	CentreID            string
	Lat                 float64
	Lon                 float64
	MaxCapacity         int
	CurrentLoad         int
	HasWheelchairAccess bool
	IsFemaleOnly        bool
	SnappedNode         int64
}

// IsValidAssignment is the eligibility extension point. All centres accept
// all students in the current data model.
func IsValidAssignment(_ *Student, _ *Centre) bool {
	return true
}
