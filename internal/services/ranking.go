package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/types"
)

// Blend weights. Preference carries 70% of the total, recency the rest;
// within the preference term authors dominate, then genre, then emotion.
const (
	rerankWindowMultiplier = 3

	weightAuthor  = 1.0
	weightGenre   = 0.7
	weightEmotion = 0.4

	weightPref    = 0.7
	weightRecency = 1.0 - weightPref

	// recencyTauSeconds is the e-folding time of the age decay: one day old
	// scores e^-1.
	recencyTauSeconds = 60 * 60 * 24
)

// RankedFeed is one scored candidate. It lives for a single ranking pass and
// keeps the full breakdown for the score-debug surface.
type RankedFeed struct {
	Feed *types.Feed

	AuthorScore  float64
	GenreScore   float64
	EmotionScore float64
	PrefScore    float64
	RecencyScore float64
	TotalScore   float64
}

func authorKey(f *types.Feed) string {
	return authorPrefKey(f.AuthorID)
}

func genreKey(f *types.Feed) string {
	return genrePrefKey(*f.Genre)
}

func emotionKey(f *types.Feed) string {
	return emotionPrefKey(*f.Emotion)
}

func authorPrefKey(id uuid.UUID) string {
	return "author:" + id.String()
}

func genrePrefKey(genre string) string {
	return "genre:" + genre
}

func emotionPrefKey(emotion string) string {
	return "emotion:" + emotion
}

// prefKeysFor collects the distinct preference keys referenced by a candidate
// window. Unset genre/emotion contribute no key.
func prefKeysFor(feeds []*types.Feed) []string {
	seen := make(map[string]struct{}, len(feeds)*3)
	keys := make([]string, 0, len(feeds)*3)
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, f := range feeds {
		add(authorKey(f))
		if f.Genre != nil {
			add(genreKey(f))
		}
		if f.Emotion != nil {
			add(emotionKey(f))
		}
	}
	return keys
}

// recencyScore decays exponentially with age. Age 0 scores exactly 1.0; the
// same now is used for every candidate in one pass so identical timestamps
// always score identically.
func recencyScore(createdAt, now time.Time) float64 {
	ageSec := now.Sub(createdAt).Seconds()
	if ageSec < 0 {
		ageSec = 0
	}
	return math.Exp(-ageSec / recencyTauSeconds)
}

func scoreFeed(f *types.Feed, prefs map[string]float64, now time.Time) RankedFeed {
	author := weightAuthor * prefs[authorKey(f)]
	var genre float64
	if f.Genre != nil {
		genre = weightGenre * prefs[genreKey(f)]
	}
	var emotion float64
	if f.Emotion != nil {
		emotion = weightEmotion * prefs[emotionKey(f)]
	}
	pref := author + genre + emotion
	recency := recencyScore(f.CreatedAt, now)
	return RankedFeed{
		Feed:         f,
		AuthorScore:  author,
		GenreScore:   genre,
		EmotionScore: emotion,
		PrefScore:    pref,
		RecencyScore: recency,
		TotalScore:   weightPref*pref + weightRecency*recency,
	}
}

// rankFeeds scores, sorts and truncates one candidate window. The three-level
// tie-break (total desc, createdAt desc, id desc) keeps the ordering
// deterministic across passes; without it the cursor contract breaks for
// items sharing a score and a timestamp.
func rankFeeds(feeds []*types.Feed, prefs map[string]float64, now time.Time, limit int) []RankedFeed {
	ranked := make([]RankedFeed, 0, len(feeds))
	for _, f := range feeds {
		ranked = append(ranked, scoreFeed(f, prefs, now))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.Feed.CreatedAt.Equal(b.Feed.CreatedAt) {
			return a.Feed.CreatedAt.After(b.Feed.CreatedAt)
		}
		return a.Feed.ID > b.Feed.ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ScoreBreakdown is the per-item debug payload exposed on the scores
// endpoint.
type ScoreBreakdown struct {
	FeedID       int64   `json:"feed_id"`
	AuthorScore  float64 `json:"author_score"`
	GenreScore   float64 `json:"genre_score"`
	EmotionScore float64 `json:"emotion_score"`
	PrefScore    float64 `json:"pref_score"`
	RecencyScore float64 `json:"recency_score"`
	TotalScore   float64 `json:"total_score"`
	AgeSeconds   int64   `json:"age_seconds"`
}

func breakdownOf(r RankedFeed, now time.Time) ScoreBreakdown {
	return ScoreBreakdown{
		FeedID:       r.Feed.ID,
		AuthorScore:  r.AuthorScore,
		GenreScore:   r.GenreScore,
		EmotionScore: r.EmotionScore,
		PrefScore:    r.PrefScore,
		RecencyScore: r.RecencyScore,
		TotalScore:   r.TotalScore,
		AgeSeconds:   int64(now.Sub(r.Feed.CreatedAt).Seconds()),
	}
}

func formatAge(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}
