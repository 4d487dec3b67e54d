// Package scheduling holds the pure core of the shift assignment engine:
// qualification matching, time-overlap detection, capacity policy and the
// assignment transition guards. Everything here is side-effect free; the
// service layer supplies data and persists outcomes.
package scheduling

// MatchResult describes how a staff member's qualification set measures
// up against a shift's requirements.
type MatchResult struct {
	RequiredCount      int  `json:"required_count"`
	MatchingCount      int  `json:"matching_count"`
	FullyQualified     bool `json:"fully_qualified"`
	PartiallyQualified bool `json:"partially_qualified"`
}

// Match computes qualification match statistics. An empty requirement set
// is trivially satisfied. Duplicate entries are treated as sets.
func Match(staffQualifications, requiredQualifications []string) MatchResult {
	required := make(map[string]struct{}, len(requiredQualifications))
	for _, id := range requiredQualifications {
		required[id] = struct{}{}
	}

	result := MatchResult{RequiredCount: len(required)}
	if result.RequiredCount == 0 {
		result.FullyQualified = true
		return result
	}

	held := make(map[string]struct{}, len(staffQualifications))
	for _, id := range staffQualifications {
		held[id] = struct{}{}
	}
	for id := range required {
		if _, ok := held[id]; ok {
			result.MatchingCount++
		}
	}

	result.FullyQualified = result.MatchingCount == result.RequiredCount
	result.PartiallyQualified = result.MatchingCount > 0 && result.MatchingCount < result.RequiredCount
	return result
}
