// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filelist implements the ordered file sequence used by multi-file
// workflows. Items are identified by the synthetic ID assigned when a file
// is accepted, never by name, so duplicate names do not collide.
package filelist

import (
	"errors"
	"fmt"

	"github.com/pdiddy/docconv/pkg/types"
)

var (
	// ErrNotFound is returned when an ID or name is not in the list.
	ErrNotFound = errors.New("file not in list")
	// ErrAmbiguousName is returned by name-based moves when the name occurs more than once.
	ErrAmbiguousName = errors.New("file name is not unique")
	// ErrOutOfRange is returned when a target position is outside the list.
	ErrOutOfRange = errors.New("position out of range")
)

// List is an ordered sequence of pending files. Order is submission order.
// The zero value is an empty list ready to use.
type List struct {
	items []types.PendingFile
}

// Append adds files to the end of the list, preserving their order.
func (l *List) Append(files ...types.PendingFile) {
	l.items = append(l.items, files...)
}

// Reset empties the list.
func (l *List) Reset() {
	l.items = nil
}

// Len returns the number of files.
func (l *List) Len() int {
	return len(l.items)
}

// Files returns a copy of the files in order.
func (l *List) Files() []types.PendingFile {
	out := make([]types.PendingFile, len(l.items))
	copy(out, l.items)
	return out
}

// Names returns the display names in order.
func (l *List) Names() []string {
	names := make([]string, len(l.items))
	for i, f := range l.items {
		names[i] = f.Name
	}
	return names
}

// Remove deletes the file with the given ID.
func (l *List) Remove(id string) error {
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// Move moves the item activeID to the position currently held by overID,
// shifting the items in between. Dropping an item on itself is a no-op.
func (l *List) Move(activeID, overID string) error {
	if activeID == overID {
		if l.indexOf(activeID) < 0 {
			return fmt.Errorf("%w: id %s", ErrNotFound, activeID)
		}
		return nil
	}
	from := l.indexOf(activeID)
	if from < 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, activeID)
	}
	to := l.indexOf(overID)
	if to < 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, overID)
	}
	l.move(from, to)
	return nil
}

// MoveTo moves the item with the given ID to the absolute 0-based index.
func (l *List) MoveTo(id string, index int) error {
	from := l.indexOf(id)
	if from < 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d (list has %d files)", ErrOutOfRange, index, len(l.items))
	}
	l.move(from, index)
	return nil
}

// MoveByName moves the file named active to the position of the file named
// over. Both names must be unique in the list.
func (l *List) MoveByName(active, over string) error {
	a, err := l.IDByName(active)
	if err != nil {
		return err
	}
	o, err := l.IDByName(over)
	if err != nil {
		return err
	}
	return l.Move(a, o)
}

// IDByName resolves a display name to an ID. It fails when the name is
// missing or shared by more than one file.
func (l *List) IDByName(name string) (string, error) {
	id := ""
	for _, f := range l.items {
		if f.Name != name {
			continue
		}
		if id != "" {
			return "", fmt.Errorf("%w: %q", ErrAmbiguousName, name)
		}
		id = f.ID
	}
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return id, nil
}

func (l *List) indexOf(id string) int {
	for i, f := range l.items {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// move is the classic array move: remove at from, insert at to.
func (l *List) move(from, to int) {
	if from == to {
		return
	}
	item := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)
	l.items = append(l.items[:to], append([]types.PendingFile{item}, l.items[to:]...)...)
}
