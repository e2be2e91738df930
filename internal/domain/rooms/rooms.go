// Package rooms places teams into capacity-bounded rooms in first-come order.
package rooms

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultLabelPrefix prefixes room numbers when no other prefix is set.
const DefaultLabelPrefix = "Room_"

// Sentinel errors for invalid room parameters.
var (
	ErrInvalidRooms    = errors.New("rooms available must be at least 1")
	ErrInvalidCapacity = errors.New("room capacity must be at least 1")
)

// Assignment places one team into one room.
type Assignment struct {
	Team string
	Room string
}

// Allocation is the result of one assignment.
type Allocation struct {
	Assignments []Assignment
	// Dropped lists, in input order, teams that did not fit.
	Dropped []string
}

// Counts returns how many teams each room received.
func (a *Allocation) Counts() map[string]int {
	out := make(map[string]int)
	for _, as := range a.Assignments {
		out[as.Room]++
	}
	return out
}

// Assigner fills rooms one after another.
type Assigner struct {
	prefix string
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithLabelPrefix sets the room label prefix.
func WithLabelPrefix(prefix string) Option {
	return func(a *Assigner) { a.prefix = prefix }
}

// NewAssigner creates an Assigner labelling rooms with DefaultLabelPrefix.
func NewAssigner(opts ...Option) *Assigner {
	a := &Assigner{prefix: DefaultLabelPrefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Label returns the name of the 1-based room n.
func (a *Assigner) Label(n int) string {
	return a.prefix + strconv.Itoa(n)
}

// Assign fills room 1 up to capacity, then room 2, and so on, keeping the
// order of teams. Teams beyond rooms*capacity are dropped, not queued.
func (a *Assigner) Assign(teams []string, rooms, capacity int) (*Allocation, error) {
	if rooms < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRooms, rooms)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	out := &Allocation{Assignments: make([]Assignment, 0, len(teams))}
	for i, team := range teams {
		room := i / capacity
		if room >= rooms {
			out.Dropped = append(out.Dropped, teams[i:]...)
			break
		}
		out.Assignments = append(out.Assignments, Assignment{Team: team, Room: a.Label(room + 1)})
	}
	return out, nil
}
