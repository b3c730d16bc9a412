package scoring

// Option applies a configuration option to the SimilarityScorer.
type Option func(*SimilarityScorer)

// WithWeights sets the cosine and euclidean blend weights. Negative weights
// and an all-zero pair are ignored.
func WithWeights(cosine, euclid float64) Option {
	return func(s *SimilarityScorer) {
		if cosine < 0 || euclid < 0 || cosine+euclid == 0 {
			return
		}
		s.cosineWeight = cosine
		s.euclidWeight = euclid
	}
}

// WithBoost sets the boost threshold and amount. A zero amount disables
// boosting.
func WithBoost(threshold, amount float64) Option {
	return func(s *SimilarityScorer) {
		if threshold < 0 || amount < 0 {
			return
		}
		s.boostThreshold = threshold
		s.boostAmount = amount
	}
}
