package positions

import "context"

// FanoutStateStore writes position snapshots to every backing store. The
// first error is returned after all stores have been attempted, so a failing
// backend cannot starve the others.
type FanoutStateStore struct {
	stores []StateStore
}

// NewFanoutStateStore combines multiple state stores into one
func NewFanoutStateStore(stores ...StateStore) *FanoutStateStore {
	return &FanoutStateStore{stores: stores}
}

func (f *FanoutStateStore) SavePosition(ctx context.Context, p *Position) error {
	var firstErr error
	for _, s := range f.stores {
		if err := s.SavePosition(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *FanoutStateStore) DeletePosition(ctx context.Context, mint string) error {
	var firstErr error
	for _, s := range f.stores {
		if err := s.DeletePosition(ctx, mint); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
