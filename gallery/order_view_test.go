package gallery

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type recordingCommitter struct {
	mu    sync.Mutex
	calls [][]uuid.UUID
	scope Scope
	err   error
	// block, when set, holds CommitOrder until it is closed
	block   chan struct{}
	entered chan struct{}
}

func (c *recordingCommitter) CommitOrder(ctx context.Context, scope Scope, ids []uuid.UUID) error {
	if c.entered != nil {
		close(c.entered)
	}
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, slices.Clone(ids))
	c.scope = scope
	return c.err
}

func (c *recordingCommitter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func threeIDs() (uuid.UUID, uuid.UUID, uuid.UUID) {
	return uuid.New(), uuid.New(), uuid.New()
}

func TestDragSendsOneBatchPerGesture(t *testing.T) {
	img1, img2, img3 := threeIDs()
	projectID := uuid.New()
	committer := &recordingCommitter{}
	view := NewOrderView(ImagesScope(projectID), committer, []uuid.UUID{img1, img2, img3})

	if err := view.BeginDrag(); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	// Several intermediate positions of one gesture.
	for _, idx := range []int{1, 2, 0} {
		if err := view.Move(img3, idx); err != nil {
			t.Fatalf("Move: %v", err)
		}
	}
	if committer.callCount() != 0 {
		t.Fatal("request sent while dragging")
	}

	committed, err := view.Release(context.Background())
	if err != nil || !committed {
		t.Fatalf("Release = %v, %v", committed, err)
	}

	want := []uuid.UUID{img3, img1, img2}
	if committer.callCount() != 1 || !slices.Equal(committer.calls[0], want) {
		t.Fatalf("calls = %v, want one call with %v", committer.calls, want)
	}
	if committer.scope != ImagesScope(projectID) {
		t.Errorf("scope = %v", committer.scope)
	}
	if !slices.Equal(view.Confirmed(), want) || !slices.Equal(view.Local(), want) {
		t.Errorf("confirmed = %v, local = %v", view.Confirmed(), view.Local())
	}
	if view.State() != Stable {
		t.Errorf("state = %v", view.State())
	}
}

func TestReleaseWithoutChangeSendsNothing(t *testing.T) {
	a, b, c := threeIDs()
	committer := &recordingCommitter{}
	view := NewOrderView(ProjectsScope(), committer, []uuid.UUID{a, b, c})

	if err := view.BeginDrag(); err != nil {
		t.Fatal(err)
	}
	// Moves that end where they started.
	_ = view.Move(a, 2)
	_ = view.Move(a, 0)

	committed, err := view.Release(context.Background())
	if err != nil || committed {
		t.Fatalf("Release = %v, %v; want no-op", committed, err)
	}
	if committer.callCount() != 0 {
		t.Error("request sent for an unchanged order")
	}
	if view.State() != Stable {
		t.Errorf("state = %v", view.State())
	}
}

func TestRejectedCommitRestoresSnapshot(t *testing.T) {
	a, b, c := threeIDs()
	original := []uuid.UUID{a, b, c}
	committer := &recordingCommitter{err: errors.New("503 service unavailable")}
	view := NewOrderView(ProjectsScope(), committer, original)

	var transitions []State
	view.OnStateChange = func(from, to State) { transitions = append(transitions, to) }

	_ = view.BeginDrag()
	_ = view.Move(c, 0)
	committed, err := view.Release(context.Background())
	if err == nil || committed {
		t.Fatalf("Release = %v, %v; want failure", committed, err)
	}
	if !errors.Is(err, committer.err) {
		t.Errorf("err = %v, want wrapped committer error", err)
	}

	if !slices.Equal(view.Local(), original) || !slices.Equal(view.Confirmed(), original) {
		t.Errorf("local = %v, confirmed = %v, want %v", view.Local(), view.Confirmed(), original)
	}
	want := []State{Dragging, Committing, RollingBack, Stable}
	if !slices.Equal(transitions, want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
	if committer.callCount() != 1 {
		t.Errorf("calls = %d, want exactly one (no retry)", committer.callCount())
	}
}

func TestNoDragWhileCommitting(t *testing.T) {
	a, b, c := threeIDs()
	committer := &recordingCommitter{block: make(chan struct{}), entered: make(chan struct{})}
	view := NewOrderView(ProjectsScope(), committer, []uuid.UUID{a, b, c})

	_ = view.BeginDrag()
	_ = view.Move(a, 2)

	done := make(chan error, 1)
	go func() {
		_, err := view.Release(context.Background())
		done <- err
	}()
	<-committer.entered

	if view.State() != Committing {
		t.Fatalf("state = %v, want committing", view.State())
	}
	if err := view.BeginDrag(); !errors.Is(err, ErrCommitInFlight) {
		t.Errorf("BeginDrag = %v, want ErrCommitInFlight", err)
	}
	if err := view.Reset(nil); !errors.Is(err, ErrCommitInFlight) {
		t.Errorf("Reset = %v, want ErrCommitInFlight", err)
	}

	close(committer.block)
	if err := <-done; err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := view.BeginDrag(); err != nil {
		t.Errorf("BeginDrag after commit: %v", err)
	}
}

func TestDragGuards(t *testing.T) {
	a, b, c := threeIDs()
	view := NewOrderView(ProjectsScope(), &recordingCommitter{}, []uuid.UUID{a, b, c})

	if err := view.Move(a, 1); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Move outside drag = %v", err)
	}
	if _, err := view.Release(context.Background()); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Release outside drag = %v", err)
	}
	if err := view.Cancel(); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Cancel outside drag = %v", err)
	}

	_ = view.BeginDrag()
	if err := view.BeginDrag(); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("second BeginDrag = %v", err)
	}
	if err := view.Move(uuid.New(), 0); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Move unknown = %v", err)
	}
	if err := view.Reset([]uuid.UUID{a}); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("Reset while dragging = %v", err)
	}
}

func TestMoveClampsIndex(t *testing.T) {
	a, b, c := threeIDs()
	view := NewOrderView(ProjectsScope(), &recordingCommitter{}, []uuid.UUID{a, b, c})
	_ = view.BeginDrag()

	_ = view.Move(a, 99)
	if got := view.Local(); !slices.Equal(got, []uuid.UUID{b, c, a}) {
		t.Errorf("after move to end: %v", got)
	}
	_ = view.Move(a, -5)
	if got := view.Local(); !slices.Equal(got, []uuid.UUID{a, b, c}) {
		t.Errorf("after move to start: %v", got)
	}
}

func TestCancelRestoresSnapshot(t *testing.T) {
	a, b, c := threeIDs()
	committer := &recordingCommitter{}
	view := NewOrderView(ProjectsScope(), committer, []uuid.UUID{a, b, c})

	_ = view.BeginDrag()
	_ = view.Move(c, 0)
	if err := view.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := view.Local(); !slices.Equal(got, []uuid.UUID{a, b, c}) {
		t.Errorf("local = %v", got)
	}
	if committer.callCount() != 0 {
		t.Error("cancel sent a request")
	}
}

func TestResetReplacesBothOrders(t *testing.T) {
	a, b, c := threeIDs()
	view := NewOrderView(ProjectsScope(), &recordingCommitter{}, []uuid.UUID{a, b})

	if err := view.Reset([]uuid.UUID{c, a}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !slices.Equal(view.Local(), []uuid.UUID{c, a}) || !slices.Equal(view.Confirmed(), []uuid.UUID{c, a}) {
		t.Errorf("local = %v, confirmed = %v", view.Local(), view.Confirmed())
	}
}
