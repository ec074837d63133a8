// Package directory resolves class rooms to their authorized member sets.
// Rosters are externally mutated, so every lookup is a fresh read: caching a
// membership snapshot across requests could leak messages to removed members
// or block newly added ones.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/lpusphere/sphere-server/internal/store"
)

// ErrClassNotFound is returned when the class id is unknown.
var ErrClassNotFound = errors.New("class not found")

// Membership is a point-in-time snapshot of who may read and write a class
// room. Valid for the request that resolved it, nothing longer.
type Membership struct {
	ClassID string
	Name    string
	Code    string
	Faculty string
	Members []string
}

// Authorized reports whether regNo may read/write the class:
// on the roster or the owning faculty member.
func (m *Membership) Authorized(regNo string) bool {
	if regNo == m.Faculty {
		return true
	}
	for _, member := range m.Members {
		if member == regNo {
			return true
		}
	}
	return false
}

// Recipients returns everyone who should be notified about a message from
// sender: members plus faculty, minus the sender.
func (m *Membership) Recipients(sender string) []string {
	recipients := make([]string, 0, len(m.Members)+1)
	seen := make(map[string]struct{}, len(m.Members)+1)
	for _, member := range m.Members {
		if member == sender {
			continue
		}
		if _, dup := seen[member]; dup {
			continue
		}
		seen[member] = struct{}{}
		recipients = append(recipients, member)
	}
	if _, dup := seen[m.Faculty]; m.Faculty != sender && !dup {
		recipients = append(recipients, m.Faculty)
	}
	return recipients
}

// Directory looks up class rooms and their rosters.
type Directory struct {
	classes store.ClassStore
}

// New creates a directory over the class store.
func New(classes store.ClassStore) *Directory {
	return &Directory{classes: classes}
}

// Resolve reads the class and its roster. Returns ErrClassNotFound for
// unknown ids.
func (d *Directory) Resolve(ctx context.Context, classID string) (*Membership, error) {
	class, err := d.classes.GetClassByID(ctx, classID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%q: %w", classID, ErrClassNotFound)
		}
		return nil, fmt.Errorf("resolve class: %w", err)
	}

	members, err := d.classes.ListMembers(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("resolve roster: %w", err)
	}

	return &Membership{
		ClassID: class.ID,
		Name:    class.Name,
		Code:    class.Code,
		Faculty: class.Faculty,
		Members: members,
	}, nil
}

// Authorize reports whether regNo may access classID.
func (d *Directory) Authorize(ctx context.Context, regNo, classID string) (bool, error) {
	membership, err := d.Resolve(ctx, classID)
	if err != nil {
		return false, err
	}
	return membership.Authorized(regNo), nil
}
