package health

import "context"

// CheckFunc probes one component.
type CheckFunc func(ctx context.Context) error

// Component is a named health probe.
type Component struct {
	Name  string
	Check CheckFunc
}

// Pinger is satisfied by cache stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker is satisfied by remote providers.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Ping adapts a Pinger into a component.
func Ping(name string, p Pinger) Component {
	return Component{Name: name, Check: p.Ping}
}

// Provider adapts a Checker into a component.
func Provider(name string, c Checker) Component {
	return Component{Name: name, Check: c.HealthCheck}
}
