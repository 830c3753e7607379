package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when no record matches the id.
var ErrNotFound = errors.New("record not found")

// ErrForbidden rejects an operation on a record the session does not own.
var ErrForbidden = errors.New("record belongs to another user")

// ErrDerivedRecord rejects direct mutation of a derived half of a joint
// transaction; the joint record is the only write path for those.
var ErrDerivedRecord = errors.New("derived records are changed through their joint transaction")

// PartialSeriesError reports a series write that stopped partway: the master
// and Inserted occurrences exist, the rest were never written. There is no
// rollback; the caller decides whether to retry or clean up via a series
// delete on MasterID.
type PartialSeriesError struct {
	MasterID string
	Inserted int
	Expected int
	Err      error
}

func (e *PartialSeriesError) Error() string {
	return fmt.Sprintf("series %s partially written: %d of %d occurrences inserted: %v",
		e.MasterID, e.Inserted, e.Expected, e.Err)
}

func (e *PartialSeriesError) Unwrap() error { return e.Err }
