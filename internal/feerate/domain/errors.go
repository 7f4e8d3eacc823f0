package domain

import "errors"

var (
	ErrInvalidRateTable = errors.New("invalid_rate_table")
	ErrVersionNotFound  = errors.New("rate_version_not_found")
	ErrNoRatesPublished = errors.New("no_rates_published")
	ErrVersionConflict  = errors.New("rate_version_conflict")
)
