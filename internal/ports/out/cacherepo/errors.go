package cacherepo

import "errors"

// ErrAlreadyExists means another writer cached this fingerprint first.
// It is an expected outcome, not a failure: callers proceed without having
// cached anything and a subsequent Find serves the surviving row.
var ErrAlreadyExists = errors.New("cache entry already exists")
