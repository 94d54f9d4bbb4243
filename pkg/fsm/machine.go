package fsm

import (
	"cmp"
	"fmt"
	"slices"
)

// Graph records which destination states are reachable from each state.
// It holds no current state; the owner of the state machine does.
// Graph is not safe for concurrent mutation and is expected to be built once at startup.
type Graph[S cmp.Ordered] struct {
	edges map[S]map[S]struct{}
	// wildcard destinations are valid from every state
	wildcard map[S]struct{}
}

func New[S cmp.Ordered]() *Graph[S] {
	return &Graph[S]{
		edges:    make(map[S]map[S]struct{}),
		wildcard: make(map[S]struct{}),
	}
}

// AddTransition allows moving from one state to another.
func (g *Graph[S]) AddTransition(from, to S) *Graph[S] {
	if _, ok := g.edges[from]; !ok {
		g.edges[from] = make(map[S]struct{})
	}
	g.edges[from][to] = struct{}{}
	return g
}

// AddReset allows moving to the given state from any state other than itself.
func (g *Graph[S]) AddReset(to S) *Graph[S] {
	g.wildcard[to] = struct{}{}
	return g
}

// Allowed reports whether from -> to is a valid transition.
// Self transitions are never valid.
func (g *Graph[S]) Allowed(from, to S) bool {
	if from == to {
		return false
	}
	if _, ok := g.wildcard[to]; ok {
		return true
	}
	_, ok := g.edges[from][to]
	return ok
}

// Check returns a descriptive error for an invalid transition.
func (g *Graph[S]) Check(from, to S) error {
	if !g.Allowed(from, to) {
		return fmt.Errorf("invalid transition from %v to %v", from, to)
	}
	return nil
}

// Destinations lists the valid destinations from a state in sorted order.
func (g *Graph[S]) Destinations(from S) []S {
	out := make([]S, 0, len(g.edges[from])+len(g.wildcard))
	for to := range g.edges[from] {
		out = append(out, to)
	}
	for to := range g.wildcard {
		if to != from && !slices.Contains(out, to) {
			out = append(out, to)
		}
	}
	slices.Sort(out)
	return out
}

// Personal.AI order the ending
