// Package service defines the small capability interfaces shared by every
// component in the robot control core: consuming bus messages, binding
// configuration, and exposing a start/stop lifecycle. Each concrete component
// implements the subset of these it needs, matching the original system's
// composition of several abstract bases onto a single concrete type.
package service

import "navcore/config"

// Configurable binds a component to its configuration once, before Start is
// ever called. Returning an error aborts startup.
type Configurable interface {
	Initialise(conf *config.Configuration) error
}

// Service exposes a start/stop lifecycle. Start must be idempotent: a second
// call first tears down the service's own prior periodic tasks.
type Service interface {
	Start()
	Stop()
}
