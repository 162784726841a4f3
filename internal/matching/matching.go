// Package matching scores the overlap between interest and topic tag sets.
package matching

import (
	"math"
	"sort"
	"strings"
)

const (
	minScore = 10
	maxScore = 99
)

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

// CosineSimilarity returns |A∩B| / sqrt(|A|·|B|) over the lower-cased tag sets, in [0,1].
// It returns 0 when either side is empty.
func CosineSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA, setB := tagSet(a), tagSet(b)
	shared := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(setA))*float64(len(setB)))
}

// MatchScore converts tag similarity into a display percentage in [10,99].
// Any shared tag lifts the score to at least 25.
func MatchScore(userTags, otherTags []string) int {
	s := CosineSimilarity(userTags, otherTags)
	score := minScore + s*90
	if s > 0 {
		score = math.Max(score, 25+s*75)
	}
	n := int(math.Round(score))
	if n > maxScore {
		return maxScore
	}
	if n < minScore {
		return minScore
	}
	return n
}

// Candidate is something rankable by tags.
type Candidate struct {
	Key  string
	Tags []string
}

// Scored is a candidate with its match score.
type Scored struct {
	Key   string
	Score int
}

// Rank scores candidates against tags, highest first. Equal scores keep key order.
func Rank(tags []string, candidates []Candidate) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Scored{Key: c.Key, Score: MatchScore(tags, c.Tags)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	return out
}
