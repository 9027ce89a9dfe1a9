// Package search runs hill-climbing goals against external elevation,
// navigation and pose services.
//
// A Controller executes one goal at a time: it resolves the current position,
// samples the elevation there and on a fixed ring of eight points around it,
// and either declares a local maximum or drives the navigator to the highest
// ring point before repeating. Cancellation is cooperative and is observed
// only at the top of the loop, while waiting for a sample, and between
// navigation polls.
//
// A Supervisor owns the goroutine that executes each submitted goal and keeps
// the resulting Goal handles queryable after they finish.
package search
