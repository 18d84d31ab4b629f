// Package gallery keeps a client's optimistic ordering of projects or images
// in step with the server. A drag gesture reorders a local copy only; the
// result is committed as one batch when the gesture ends and rolled back if
// the server refuses it.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State of an OrderView
type State int

const (
	// Stable: the local order equals the last confirmed server order
	Stable State = iota
	// Dragging: a gesture is reordering the local copy
	Dragging
	// Committing: the final order of a gesture is being sent to the server
	Committing
	// RollingBack: the server refused the order and the snapshot is being restored
	RollingBack
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case RollingBack:
		return "rolling_back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrDragInProgress = errors.New("a drag is already in progress")
	ErrCommitInFlight = errors.New("a reorder is still being committed")
	ErrNotDragging    = errors.New("no drag in progress")
	ErrUnknownItem    = errors.New("item is not part of this view")
)

// Scope names the sibling set an order applies to: the project list, or the
// images of one project
type Scope struct {
	ProjectID uuid.UUID
}

// ProjectsScope is the global project ordering
func ProjectsScope() Scope {
	return Scope{}
}

// ImagesScope is the image ordering of one project
func ImagesScope(projectID uuid.UUID) Scope {
	return Scope{ProjectID: projectID}
}

func (s Scope) IsProjects() bool {
	return s.ProjectID == uuid.Nil
}

func (s Scope) String() string {
	if s.IsProjects() {
		return "projects"
	}
	return "project:" + s.ProjectID.String()
}

// Committer persists a complete order for a scope in one call
type Committer interface {
	CommitOrder(ctx context.Context, scope Scope, ids []uuid.UUID) error
}

// OrderView holds the server-confirmed order and the local optimistic order
// of one scope. It is safe for concurrent use.
type OrderView struct {
	mu        sync.Mutex
	scope     Scope
	committer Committer
	logger    zerolog.Logger

	state     State
	confirmed []uuid.UUID
	local     []uuid.UUID
	snapshot  []uuid.UUID

	// OnStateChange, when set, is called with every state transition. It runs
	// with the view locked and must not call back into the view.
	OnStateChange func(from, to State)
}

func NewOrderView(scope Scope, committer Committer, ids []uuid.UUID) *OrderView {
	return &OrderView{
		scope:     scope,
		committer: committer,
		logger:    log.With().Str("component", "orderView").Str("scope", scope.String()).Logger(),
		state:     Stable,
		confirmed: slices.Clone(ids),
		local:     slices.Clone(ids),
	}
}

func (v *OrderView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Local returns the order currently shown to the user
func (v *OrderView) Local() []uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.local)
}

// Confirmed returns the last order the server accepted
func (v *OrderView) Confirmed() []uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.confirmed)
}

// BeginDrag starts a gesture and snapshots the local order
func (v *OrderView) BeginDrag() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case Dragging:
		return ErrDragInProgress
	case Committing, RollingBack:
		return ErrCommitInFlight
	}
	v.snapshot = slices.Clone(v.local)
	v.transition(Dragging)
	return nil
}

// Move places id at toIndex in the local order. Out of range indexes are
// clamped. No request is made.
func (v *OrderView) Move(id uuid.UUID, toIndex int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != Dragging {
		return ErrNotDragging
	}
	from := slices.Index(v.local, id)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	toIndex = max(0, min(toIndex, len(v.local)-1))
	if from == toIndex {
		return nil
	}
	v.local = slices.Insert(slices.Delete(v.local, from, from+1), toIndex, id)
	return nil
}

// Release ends the gesture. An unchanged order returns to Stable without a
// request. Otherwise the complete order is committed once; on failure the
// snapshot is restored and the error returned. There is no retry.
func (v *OrderView) Release(ctx context.Context) (committed bool, err error) {
	v.mu.Lock()
	if v.state != Dragging {
		v.mu.Unlock()
		return false, ErrNotDragging
	}
	if slices.Equal(v.local, v.snapshot) {
		v.snapshot = nil
		v.transition(Stable)
		v.mu.Unlock()
		return false, nil
	}
	ids := slices.Clone(v.local)
	v.transition(Committing)
	v.mu.Unlock()

	commitErr := v.committer.CommitOrder(ctx, v.scope, ids)

	v.mu.Lock()
	defer v.mu.Unlock()
	if commitErr != nil {
		v.transition(RollingBack)
		v.local = v.snapshot
		v.snapshot = nil
		v.transition(Stable)
		v.logger.Warn().Err(commitErr).Int("count", len(ids)).Msg("reorder rejected, restored previous order")
		return false, fmt.Errorf("commit order: %w", commitErr)
	}
	v.confirmed = ids
	v.local = slices.Clone(ids)
	v.snapshot = nil
	v.transition(Stable)
	return true, nil
}

// Cancel abandons the gesture and restores the snapshot
func (v *OrderView) Cancel() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != Dragging {
		return ErrNotDragging
	}
	v.local = v.snapshot
	v.snapshot = nil
	v.transition(Stable)
	return nil
}

// Reset replaces both orders, e.g. after the list was reloaded from the server
func (v *OrderView) Reset(ids []uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case Dragging:
		return ErrDragInProgress
	case Committing, RollingBack:
		return ErrCommitInFlight
	}
	v.confirmed = slices.Clone(ids)
	v.local = slices.Clone(ids)
	return nil
}

func (v *OrderView) transition(to State) {
	from := v.state
	v.state = to
	if v.OnStateChange != nil && from != to {
		v.OnStateChange(from, to)
	}
}
