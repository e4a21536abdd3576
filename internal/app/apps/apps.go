package apps

import "context"

// App is a runnable cobot application.
type App interface {
	Run(ctx context.Context, args []string) error
}
