package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/skillswap/skillswap/internal/model"
)

// Keyword scorer weights.
const (
	// DefaultMinRelevance is the floor a candidate's score must exceed.
	DefaultMinRelevance = 0.2

	// sharedGoalWeight scales the bonus for wanting to learn the same thing.
	// It stays below any single complementary direction.
	sharedGoalWeight = 0.25
)

// stopWords carry no meaning in a skill label.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "or": true,
	"to": true, "in": true, "for": true, "with": true, "on": true, "how": true,
	"basic": true, "basics": true, "beginner": true, "intermediate": true,
	"advanced": true, "intro": true, "introduction": true, "learn": true,
	"learning": true, "lesson": true, "lessons": true,
}

// KeywordScorer is the deterministic scorer. It compares skill labels by
// normalized token overlap:
//
//	score = sim(candidate.teach, requester.learn)
//	      + sim(candidate.learn, requester.teach)
//	      + 0.25 * sim(candidate.learn, requester.learn)
//
// where sim is 1 for equal phrases and Jaccard similarity of token sets
// otherwise. Candidates must score above MinRelevance. Equal scores keep
// pool order.
type KeywordScorer struct {
	MinRelevance float64
}

// NewKeywordScorer returns a KeywordScorer. A negative floor is treated as zero.
func NewKeywordScorer(minRelevance float64) *KeywordScorer {
	if minRelevance < 0 {
		minRelevance = 0
	}
	return &KeywordScorer{MinRelevance: minRelevance}
}

// Name implements Scorer.
func (s *KeywordScorer) Name() string { return "keyword" }

// Rank implements Scorer.
func (s *KeywordScorer) Rank(ctx context.Context, q Query) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wantTokens := tokenize(q.LearnSkill)
	offerTokens := tokenize(q.TeachSkill)

	type scored struct {
		match model.Match
		score float64
	}
	ranked := make([]scored, 0, len(q.Pool))

	for _, c := range q.Pool {
		if c == nil {
			continue
		}
		candOffer := tokenize(c.TeachSkill)
		candWant := tokenize(c.LearnSkill)

		offers := similarity(candOffer, wantTokens)
		wants := similarity(candWant, offerTokens)
		shared := similarity(candWant, wantTokens)

		score := offers + wants + sharedGoalWeight*shared
		if score <= s.MinRelevance {
			continue
		}

		ranked = append(ranked, scored{
			match: model.Match{
				CandidateEmail: c.Email,
				Rationale:      rationale(c, offers, wants, shared),
				Score:          math.Round(score*1000) / 1000,
			},
			score: score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	matches := make([]model.Match, len(ranked))
	for i, r := range ranked {
		matches[i] = r.match
	}
	return matches, nil
}

func rationale(c *model.Profile, offers, wants, shared float64) string {
	switch {
	case offers > 0 && wants > 0:
		return fmt.Sprintf("Can teach you %s and wants to learn %s, which you teach.", c.TeachSkill, c.LearnSkill)
	case offers > 0:
		return fmt.Sprintf("Can teach you %s.", c.TeachSkill)
	case wants > 0:
		return fmt.Sprintf("Wants to learn %s, which you can teach.", c.LearnSkill)
	case shared > 0:
		return fmt.Sprintf("Also learning %s, a possible study partner.", c.LearnSkill)
	default:
		return ""
	}
}

// tokenize lowercases a label, splits it on anything other than letters,
// digits, '+' and '#', drops stop words and strips a plural "s".
// A label made only of stop words keeps them.
func tokenize(label string) []string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if !stopWords[f] {
			tokens = append(tokens, stem(f))
		}
	}
	if len(tokens) == 0 {
		for _, f := range fields {
			tokens = append(tokens, stem(f))
		}
	}
	return tokens
}

func stem(word string) string {
	if len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}

// similarity is 1 for identical token sequences, otherwise the Jaccard
// index of the two token sets.
func similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if strings.Join(a, " ") == strings.Join(b, " ") {
		return 1
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}
