package discussion

import (
	"strings"

	"github.com/jonreiter/govader"

	"campusevents/internal/domain/discussion"
)

// Scorer rates the sentiment of a text between -1 and 1
type Scorer interface {
	Score(text string) float64
}

// VaderScorer scores text with the VADER compound polarity
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer creates a VADER scorer
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

// Score returns the compound polarity of text, 0 for blank text
func (s *VaderScorer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return s.analyzer.PolarityScores(text).Compound
}

// SentimentText is the text an item is scored on: title and body for
// posts, the body alone otherwise
func SentimentText(item discussion.Item) string {
	if item.Kind == discussion.KindPost {
		return item.Title + " " + item.Body
	}
	return item.Body
}
