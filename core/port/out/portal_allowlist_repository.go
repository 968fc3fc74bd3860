package out

import "context"

// AllowlistRepository stores the editable allowlist.
type AllowlistRepository interface {
	// Get returns the stored emails. found is false when no list has been stored.
	Get(ctx context.Context) (emails []string, found bool, err error)

	// Put replaces the stored list.
	Put(ctx context.Context, emails []string) error
}
