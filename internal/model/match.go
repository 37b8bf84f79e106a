package model

// MaxMatches is the maximum number of candidates in a MatchResult.
const MaxMatches = 3

// MatchRequest asks for candidates complementing the requester's skills.
// CandidatePool may be empty and may contain the requester's own profiles.
type MatchRequest struct {
	RequesterEmail string
	TeachSkill     string
	LearnSkill     string
	CandidatePool  []*Profile
}

// Match is one ranked candidate.
type Match struct {
	CandidateEmail string  `json:"candidate_email"`
	Rationale      string  `json:"rationale"`
	Score          float64 `json:"score,omitempty"`
}

// MatchResult is an ordered shortlist, best first, never longer than MaxMatches.
// Results from hosted-model backends are not reproducible between calls.
type MatchResult struct {
	Matches []Match `json:"matches"`
	Backend string  `json:"backend"`
}

// Len returns the number of matches.
func (r *MatchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Matches)
}

// Emails returns candidate emails in rank order.
func (r *MatchResult) Emails() []string {
	if r == nil {
		return nil
	}
	emails := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		emails[i] = m.CandidateEmail
	}
	return emails
}
