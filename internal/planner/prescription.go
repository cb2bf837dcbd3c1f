package planner

const abdominals = "Abdominals"

// prescribe returns the sets and rep range for e.
func prescribe(e Exercise) (int, string) {
	switch {
	case e.Category == CategoryPowerlifting:
		return 5, "3-5" //nolint:mnd // heavy low-rep work.
	case e.Category == CategoryPlyometrics:
		return 3, "10-15" //nolint:mnd // explosive work.
	case e.BodyPart == abdominals:
		return 3, "15-20" //nolint:mnd // core endurance.
	default:
		return 3, "8-12" //nolint:mnd // hypertrophy range.
	}
}
