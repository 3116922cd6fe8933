package search

// Threshold is the confidence above which a caller may stop searching.
const Threshold = 0.75

func clamp(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// KeywordConfidence scores a ranked keyword result: volume of the top
// conversation saturating at 5 hits plus breadth saturating at 3
// conversations.
func KeywordConfidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	top := float64(results[0].Hits)
	n := float64(len(results))
	return clamp(0.3 + 0.4*clamp(top/5) + 0.2*clamp(n/3))
}

// RecencyConfidence scores a recency listing on breadth alone.
func RecencyConfidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	return clamp(0.4 + 0.4*clamp(float64(len(results))/3))
}
