package dlib

// Option applies a configuration option to the Backend.
type Option func(*Backend)

// WithCNN switches detection from HOG to the slower, more accurate CNN
// detector.
func WithCNN(enabled bool) Option {
	return func(b *Backend) {
		b.cnn = enabled
	}
}
