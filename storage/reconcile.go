package storage

import "context"

// reconcileOps binds a natural-key collection to the reconciler: find locates
// an existing record by the incoming record's key, insert creates a new one,
// replace overwrites every mutable field of the stored record with incoming
// values while keeping identity fields.
type reconcileOps[T any] struct {
	find    func(ctx context.Context, incoming T) (*T, error)
	insert  func(ctx context.Context, incoming T) error
	replace func(ctx context.Context, incoming, existing T) error
}

// reconcile upserts each record of the batch by natural key, in input order.
// Keys are expected unique within a batch; when one repeats, sequential
// processing means the last occurrence wins, which is the accepted policy.
// Records are written independently, so a failure mid-batch leaves earlier
// keys applied and later ones not; the count of records processed so far is
// returned either way.
func reconcile[T any](ctx context.Context, batch []T, ops reconcileOps[T]) (int, error) {
	upserted := 0
	for _, incoming := range batch {
		existing, err := ops.find(ctx, incoming)
		if err != nil {
			return upserted, err
		}
		if existing != nil {
			err = ops.replace(ctx, incoming, *existing)
		} else {
			err = ops.insert(ctx, incoming)
		}
		if err != nil {
			return upserted, err
		}
		upserted++
	}
	return upserted, nil
}
