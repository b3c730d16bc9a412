package repository

import "github.com/okian/facegate/pkg/logger"

// DuplicatePolicy decides what Add does with a name already enrolled.
type DuplicatePolicy string

// Duplicate policies.
const (
	DuplicateReject  DuplicatePolicy = "reject"
	DuplicateReplace DuplicatePolicy = "replace"
)

// ParseDuplicatePolicy validates a configured policy. Empty means reject.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateReject:
		return DuplicateReject, nil
	case DuplicateReplace:
		return DuplicateReplace, nil
	default:
		return "", ErrUnknownPolicy
	}
}

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithDuplicatePolicy sets the duplicate policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(c *Catalog) {
		if p == DuplicateReject || p == DuplicateReplace {
			c.policy = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}
