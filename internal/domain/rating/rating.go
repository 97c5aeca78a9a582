// Package rating computes aggregates over a vendor's rating list.
package rating

// Accepted rating bounds, inclusive.
const (
	Min float32 = 0
	Max float32 = 5
)

// InRange reports whether r is an acceptable rating. NaN is not.
func InRange(r float32) bool {
	return r >= Min && r <= Max
}

// Summary describes a non-empty rating list.
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Lowest  float32 `json:"lowest"`
	Highest float32 `json:"highest"`
}

// Average returns the arithmetic mean of ratings. The sum is accumulated in
// float64 so long lists do not drift. ok is false for an empty list.
func Average(ratings []float32) (avg float64, ok bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range ratings {
		sum += float64(r)
	}
	return sum / float64(len(ratings)), true
}

// Summarize returns count, mean and extremes of ratings.
func Summarize(ratings []float32) (Summary, bool) {
	avg, ok := Average(ratings)
	if !ok {
		return Summary{}, false
	}
	s := Summary{Count: len(ratings), Average: avg, Lowest: ratings[0], Highest: ratings[0]}
	for _, r := range ratings[1:] {
		s.Lowest = min(s.Lowest, r)
		s.Highest = max(s.Highest, r)
	}
	return s, true
}
