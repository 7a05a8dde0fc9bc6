// Package baseline supplies historical sell-through baselines for
// store/category pairs. Absence of a baseline propagates as "not found",
// never as a zero value: the validator decides what a missing baseline
// means, the provider never papers over one.
package baseline

import (
	"context"
	"errors"

	"github.com/retailops/shelfwise/pkg/sellthrough"
)

var (
	// ErrNoBaselineData is returned when the baseline table itself is unavailable,
	// so operators can distinguish "no match" from "the lookup could not run"
	ErrNoBaselineData = errors.New("baseline data unavailable")
)

// Provider resolves historical baselines. It satisfies
// sellthrough.BaselineLookup.
type Provider interface {
	sellthrough.BaselineLookup
}

// GroupResolver maps a store to its group key, used to fall back to a
// cluster-level baseline when no store-level history exists.
type GroupResolver interface {
	GroupKey(storeID string) (string, bool)
}

// fallbackProvider tries a store-level lookup first and falls back to the
// store's group key. Group-sourced baselines are labeled so the validator
// records their provenance in the rationale.
type fallbackProvider struct {
	store  Provider
	groups GroupResolver
}

// NewFallbackProvider wraps a provider with store-group fallback.
func NewFallbackProvider(store Provider, groups GroupResolver) Provider {
	return &fallbackProvider{store: store, groups: groups}
}

func (p *fallbackProvider) Lookup(ctx context.Context, storeID, categoryKey string) (sellthrough.Baseline, bool, error) {
	b, found, err := p.store.Lookup(ctx, storeID, categoryKey)
	if err != nil || found {
		return b, found, err
	}

	groupKey, ok := p.groups.GroupKey(storeID)
	if !ok {
		return sellthrough.Baseline{}, false, nil
	}

	b, found, err = p.store.Lookup(ctx, groupKey, categoryKey)
	if err != nil || !found {
		return sellthrough.Baseline{}, false, err
	}

	b.Source = sellthrough.BaselineSourceGroup

	return b, true, nil
}

var _ Provider = (*fallbackProvider)(nil)
