package scoring

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScorer replaces the default LocalityScorer.
func WithScorer(s Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLimit caps the number of suggestions returned. Zero means no cap.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.limit = n
		}
	}
}
