package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"go"}, nil, 0},
		{"identical", []string{"AI", "ML"}, []string{"ai", "ml"}, 1},
		{"disjoint", []string{"go"}, []string{"rust"}, 0},
		{"half", []string{"go", "rust"}, []string{"go", "zig"}, 0.5},
		{"duplicates collapse", []string{"Go", "go", "GO"}, []string{"go"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	sets := [][]string{
		nil,
		{"ai"},
		{"AI", "ml", "cloud"},
		{"ml", "design"},
		{"cloud", "devops", "go", "ai"},
	}
	for _, a := range sets {
		for _, b := range sets {
			assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
		}
	}
}

func TestMatchScore(t *testing.T) {
	assert.Equal(t, 99, MatchScore([]string{"AI", "ML"}, []string{"AI", "ML"}))
	assert.Equal(t, 10, MatchScore(nil, []string{"AI"}))
	assert.Equal(t, 10, MatchScore(nil, nil))
	assert.Equal(t, 10, MatchScore([]string{"go"}, []string{"rust"}))
	// s = 0.5: max(10+45, 25+37.5) = 62.5 rounds to 63
	assert.Equal(t, 63, MatchScore([]string{"go", "rust"}, []string{"go", "zig"}))
}

func TestMatchScoreBounds(t *testing.T) {
	pool := []string{"ai", "ml", "go", "rust", "design", "cloud", "devops"}
	for i := 0; i < len(pool); i++ {
		for j := 0; j < len(pool); j++ {
			a, b := pool[:i], pool[j:]
			got := MatchScore(a, b)
			assert.GreaterOrEqual(t, got, 10)
			assert.LessOrEqual(t, got, 99)
		}
	}
}

func TestRank(t *testing.T) {
	got := Rank([]string{"ai", "ml"}, []Candidate{
		{Key: "c", Tags: []string{"cooking"}},
		{Key: "b", Tags: []string{"ai"}},
		{Key: "a", Tags: []string{"ai", "ml"}},
		{Key: "d", Tags: nil},
	})
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, 99, got[0].Score)
	assert.Equal(t, "b", got[1].Key)
	assert.Equal(t, "c", got[2].Key)
	assert.Equal(t, "d", got[3].Key)
}
