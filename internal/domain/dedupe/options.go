package dedupe

// Option applies a configuration option to the deduper.
type Option func(*greedyDeduper)

// WithThreshold sets the IoU threshold. Values outside (0,1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(d *greedyDeduper) {
		if threshold > 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}
