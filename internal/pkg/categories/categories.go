package categories

// Category is a violation type a complaint can be filed under.
type Category struct {
	Value string
	Label string
}

var Public = []Category{
	{Value: "wrong_parking", Label: "Wrong Parking"},
	{Value: "noise_pollution", Label: "Noise Pollution"},
	{Value: "blocked_driveway", Label: "Blocked Driveway"},
	{Value: "illegal_horn", Label: "Illegal Use of Horn"},
	{Value: "others", Label: "Others"},
}

// Official categories need an officer's judgement and are admin-only.
var Official = []Category{
	{Value: "overspeeding", Label: "Overspeeding"},
	{Value: "no_seatbelt", Label: "No Seatbelt"},
	{Value: "phone_driving", Label: "Phone Use While Driving"},
}

// All lists every category with "others" last.
var All = func() []Category {
	all := make([]Category, 0, len(Public)+len(Official))
	for _, c := range Public {
		if c.Value != "others" {
			all = append(all, c)
		}
	}
	all = append(all, Official...)
	return append(all, Category{Value: "others", Label: "Others"})
}()

// ForRole returns the categories a user with role may choose from.
func ForRole(isAdmin bool) []Category {
	if isAdmin {
		return All
	}
	return Public
}

func IsOfficial(value string) bool {
	for _, c := range Official {
		if c.Value == value {
			return true
		}
	}
	return false
}

func IsKnown(value string) bool {
	for _, c := range All {
		if c.Value == value {
			return true
		}
	}
	return false
}

// Label returns the display name, or value itself for unknown categories.
func Label(value string) string {
	for _, c := range All {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}
