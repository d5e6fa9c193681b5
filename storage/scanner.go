package storage

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// The backing store indexes only (PartitionKey, RowKey), so multi-predicate
// listings over-fetch a bounded window in RowKey order and filter it in
// memory. When the predicates eliminate more than limit*overfetchFactor rows
// of the window the result under-counts; that trade is the contract, not a
// defect, and replacing it with an unbounded scan is exactly what this design
// avoids.
const overfetchFactor = 3

// clampLimit applies the caller default and the collection's hard ceiling.
func clampLimit(requested, def, ceiling int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > ceiling {
		requested = ceiling
	}
	return requested
}

// rangeScan fetches up to limit*overfetchFactor rows matching filter in
// RowKey order, applies preds in memory and truncates to limit.
func rangeScan[T any](ctx context.Context, table tableClient, filter string, limit int, decode func([]byte) (T, error), preds ...func(T) bool) ([]T, error) {
	budget := limit * overfetchFactor
	top := int32(budget)
	opts := &aztables.ListEntitiesOptions{Top: &top}
	if filter != "" {
		opts.Filter = &filter
	}

	out := make([]T, 0, limit)
	fetched := 0
	pager := table.NewListEntitiesPager(opts)
	for pager.More() && fetched < budget {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			if fetched == budget {
				break
			}
			fetched++
			row, err := decode(raw)
			if err != nil {
				return nil, err
			}
			if !matchesAll(row, preds) {
				continue
			}
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesAll[T any](row T, preds []func(T) bool) bool {
	for _, pred := range preds {
		if !pred(row) {
			return false
		}
	}
	return true
}

// findFirst returns the first row matching filter in RowKey order, or nil
// when none matches. Used for natural-key lookups on properties the store
// cannot index.
func findFirst[T any](ctx context.Context, table tableClient, filter string, decode func([]byte) (T, error)) (*T, error) {
	top := int32(1)
	pager := table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(resp.Entities) == 0 {
			continue
		}
		row, err := decode(resp.Entities[0])
		if err != nil {
			return nil, err
		}
		return &row, nil
	}
	return nil, nil
}
