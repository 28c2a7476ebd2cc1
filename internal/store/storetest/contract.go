// Package storetest provides a behavioural test suite shared by every
// store backend.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mermaidflow/internal/store"
)

// Factory creates an empty store using opts.
type Factory func(t *testing.T, opts ...store.Option) store.Store

// steppingClock returns a time source that advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// RunContract runs the Store test suite against stores built by newStore.
func RunContract(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) store.Store {
		t.Helper()
		s := newStore(t, store.WithClock(steppingClock()))
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("Create and Get", func(t *testing.T) {
		s := open(t)

		created, err := s.CreateDiagram(ctx, &store.Diagram{
			UserID:      "alice",
			Title:       "  Flow  ",
			Description: "first",
			Code:        "graph TD\nA-->B",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Flow", created.Title)
		assert.Equal(t, "flowchart", created.DiagramType)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.GetDiagram(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "first", got.Description)
		assert.Equal(t, "graph TD\nA-->B", got.Code)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("Create Invalid", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateDiagram(ctx, &store.Diagram{Title: "   "})
		assert.ErrorIs(t, err, store.ErrInvalid)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		s := open(t)
		_, err := s.GetDiagram(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("List Visibility and Order", func(t *testing.T) {
		s := open(t)

		pub1, err := s.CreateDiagram(ctx, &store.Diagram{UserID: "bob", Title: "pub1", IsPublic: true})
		require.NoError(t, err)
		mine, err := s.CreateDiagram(ctx, &store.Diagram{UserID: "alice", Title: "mine"})
		require.NoError(t, err)
		_, err = s.CreateDiagram(ctx, &store.Diagram{UserID: "bob", Title: "bob private"})
		require.NoError(t, err)
		pub2, err := s.CreateDiagram(ctx, &store.Diagram{UserID: "carol", Title: "pub2", IsPublic: true})
		require.NoError(t, err)

		alice, err := s.ListDiagrams(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{pub2.ID, mine.ID, pub1.ID}, ids(alice))

		anon, err := s.ListDiagrams(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{pub2.ID, pub1.ID}, ids(anon))
	})

	t.Run("Update", func(t *testing.T) {
		s := open(t)
		d, err := s.CreateDiagram(ctx, &store.Diagram{Title: "t", Code: "graph TD"})
		require.NoError(t, err)

		title := "renamed"
		code := "sequenceDiagram\nA->>B: hi"
		public := true
		updated, err := s.UpdateDiagram(ctx, d.ID, store.Patch{Title: &title, Code: &code, IsPublic: &public})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Title)
		assert.Equal(t, "sequence", updated.DiagramType)
		assert.True(t, updated.IsPublic)
		assert.True(t, updated.UpdatedAt.After(d.UpdatedAt))

		got, err := s.GetDiagram(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, code, got.Code)
		assert.True(t, got.CreatedAt.Equal(d.CreatedAt))

		empty := ""
		_, err = s.UpdateDiagram(ctx, d.ID, store.Patch{Title: &empty})
		assert.ErrorIs(t, err, store.ErrInvalid)

		_, err = s.UpdateDiagram(ctx, "missing", store.Patch{Title: &title})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Versions", func(t *testing.T) {
		s := open(t)
		d, err := s.CreateDiagram(ctx, &store.Diagram{Title: "t", Code: "graph TD"})
		require.NoError(t, err)

		v1, err := s.CreateVersion(ctx, &store.Version{DiagramID: d.ID, Code: "graph TD\nA", ChangeDescription: "one"})
		require.NoError(t, err)
		v2, err := s.CreateVersion(ctx, &store.Version{DiagramID: d.ID, Code: "graph TD\nB", ChangeDescription: "two"})
		require.NoError(t, err)

		versions, err := s.ListVersions(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, v2.ID, versions[0].ID)
		assert.Equal(t, v1.ID, versions[1].ID)
		assert.Equal(t, "two", versions[0].ChangeDescription)

		_, err = s.CreateVersion(ctx, &store.Version{DiagramID: "missing", Code: "x"})
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.CreateVersion(ctx, &store.Version{Code: "x"})
		assert.ErrorIs(t, err, store.ErrInvalid)

		_, err = s.ListVersions(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		d, err := s.CreateDiagram(ctx, &store.Diagram{Title: "t", IsPublic: true})
		require.NoError(t, err)
		_, err = s.CreateVersion(ctx, &store.Version{DiagramID: d.ID, Code: "x"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteDiagram(ctx, d.ID))

		_, err = s.GetDiagram(ctx, d.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.ListVersions(ctx, d.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		list, err := s.ListDiagrams(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, list)

		assert.ErrorIs(t, s.DeleteDiagram(ctx, d.ID), store.ErrNotFound)
	})
}

func ids(ds []store.Diagram) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}
