package normalize

import "github.com/jonreiter/govader"

// VaderScorer scores text with the VADER sentiment model. The analyzer is
// stateless after construction and safe to share across requests.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (s *VaderScorer) Compound(text string) float64 {
	return s.analyzer.PolarityScores(text).Compound
}
