package indoor

import "errors"

var (
	// ErrNoDataset is returned by operations that need a loaded dataset.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrEmptyAPIURL is returned by Fetch when no URL is configured.
	ErrEmptyAPIURL = errors.New("dataset URL is empty")
	// ErrFeatureNotFound is returned when a feature id or layer key has no match.
	ErrFeatureNotFound = errors.New("feature not found")
	// ErrInvalidScale is returned for a scale factor that is not positive.
	ErrInvalidScale = errors.New("scale factor must be positive")
)
