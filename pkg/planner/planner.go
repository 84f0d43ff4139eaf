// Package planner decides how a file is laid out across the placement
// candidates of a capacity snapshot. Planning is a pure computation: it
// never touches the network or the metadata store, so a failed plan leaves
// no state behind.
package planner

import (
	"errors"

	"spanfs/pkg/models"
)

var (
	// ErrInsufficientStorage is returned when the combined available bytes of
	// all candidates cannot hold the file.
	ErrInsufficientStorage = errors.New("insufficient storage across all linked accounts")

	// ErrInvalidSize is returned for a negative file size.
	ErrInvalidSize = errors.New("invalid file size")
)

// Placement assigns one contiguous byte range of the file to one account.
type Placement struct {
	AccountID int64
	Provider  models.Provider
	Offset    int64
	Length    int64
}

// Plan produces an ordered placement plan for a file of the given size over
// the snapshot candidates. Candidates are consumed first-fit in snapshot
// order; each contributes at most its available bytes. The byte ranges of the
// returned placements are contiguous and in upload order, which is also the
// reconstruction order.
//
// Given the same size and candidates, Plan always returns the same result.
func Plan(size int64, candidates []models.Candidate) ([]Placement, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if len(candidates) == 0 {
		return nil, ErrInsufficientStorage
	}

	// A zero-byte file still gets exactly one (empty) chunk on the first
	// candidate, so the file always has at least one chunk record.
	if size == 0 {
		first := candidates[0]
		return []Placement{{AccountID: first.AccountID, Provider: first.Provider}}, nil
	}

	// Fast path: the whole file fits the first candidate.
	if candidates[0].Available >= size {
		first := candidates[0]
		return []Placement{{AccountID: first.AccountID, Provider: first.Provider, Length: size}}, nil
	}

	var (
		plan      []Placement
		offset    int64
		remaining = size
	)

	for _, candidate := range candidates {
		if candidate.Available <= 0 {
			continue
		}

		length := min(candidate.Available, remaining)
		plan = append(plan, Placement{
			AccountID: candidate.AccountID,
			Provider:  candidate.Provider,
			Offset:    offset,
			Length:    length,
		})

		offset += length
		remaining -= length
		if remaining == 0 {
			break
		}
	}

	if remaining > 0 {
		return nil, ErrInsufficientStorage
	}

	return plan, nil
}
