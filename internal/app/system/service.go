package system

import "context"

// Service is a component with a managed lifecycle, such as a background
// worker or a cache warmer attached to the application. The manager starts
// registered services in order and stops them in reverse.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
