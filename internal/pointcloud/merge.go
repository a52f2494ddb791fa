package pointcloud

import (
	"fmt"

	"github.com/banshee-data/pointdiff/internal/monitoring"
)

// DuplicatePolicy decides what Merge does with a key that appears more than
// once in a dataset.
type DuplicatePolicy int

const (
	// DuplicateReject fails the merge with ErrDuplicateKey.
	DuplicateReject DuplicatePolicy = iota
	// DuplicateFanout emits one pair for every combination of matching rows,
	// the behaviour of a plain relational inner join.
	DuplicateFanout
)

// ParseDuplicatePolicy maps the configuration names to a policy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "reject":
		return DuplicateReject, nil
	case "fanout":
		return DuplicateFanout, nil
	}
	return DuplicateReject, fmt.Errorf("unknown duplicate key policy %q", s)
}

func (p DuplicatePolicy) String() string {
	if p == DuplicateFanout {
		return "fanout"
	}
	return "reject"
}

// Pair is one key present in both datasets with its two positions.
type Pair struct {
	Key    Key
	First  Point
	Second Point
}

// Merge inner-joins first and second on Key. Keys present in only one
// dataset are dropped. Pairs follow first's row order; under
// DuplicateFanout the rows of second that share a key follow their own
// order.
func Merge(first, second *Dataset, policy DuplicatePolicy) ([]Pair, error) {
	if policy == DuplicateReject {
		if err := checkUnique(first); err != nil {
			return nil, err
		}
		if err := checkUnique(second); err != nil {
			return nil, err
		}
	}

	byKey := make(map[Key][]int, second.Len())
	if second != nil {
		for i, r := range second.Rows {
			byKey[r.Key] = append(byKey[r.Key], i)
		}
	}

	var pairs []Pair
	if first != nil {
		pairs = make([]Pair, 0, min(first.Len(), second.Len()))
		for _, r := range first.Rows {
			for _, j := range byKey[r.Key] {
				pairs = append(pairs, Pair{Key: r.Key, First: r.Pos, Second: second.Rows[j].Pos})
			}
		}
	}

	monitoring.Debugf("merged %d x %d rows into %d pairs (%s)", first.Len(), second.Len(), len(pairs), policy)
	return pairs, nil
}

func checkUnique(ds *Dataset) error {
	if ds == nil {
		return nil
	}
	seen := make(map[Key]int, len(ds.Rows))
	for _, r := range ds.Rows {
		if prev, ok := seen[r.Key]; ok {
			return fmt.Errorf("%s: %w %s on lines %d and %d", ds.Name, ErrDuplicateKey, r.Key, prev, r.Line)
		}
		seen[r.Key] = r.Line
	}
	return nil
}
