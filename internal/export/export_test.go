package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmarbury/viva/internal/session"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	payload := session.ResultPayload{
		Candidate:  "Ada",
		Category:   "backend",
		StartedAt:  time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 9, 1, 10, 12, 0, 0, time.UTC),
		Responses: []session.Response{
			{Question: "Q1", Answer: "A1"},
			{Question: "Q2", Answer: ""},
		},
		DurableArtifactURL: "https://store/a.jpg?sig=1",
		ArtifactURLs:       []string{"https://store/a.jpg?sig=1"},
		Assessment:         session.Assessment{Score: 82, Recommendation: "consider"},
	}
	require.NoError(t, store.Save(payload))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, payload, loaded)
}

func TestSaveReplacesPreviousPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(session.ResultPayload{Candidate: "First"}))
	require.NoError(t, store.Save(session.ResultPayload{Candidate: "Second"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "Second", loaded.Candidate)

	// No temp file is left behind.
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestLoadMissingFileSurfacesNotExist(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "results.json"))
	require.NoError(t, err)

	_, err = store.Load()
	require.True(t, os.IsNotExist(err))
}

func TestLoadRejectsCorruptPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode result payload")
}

func TestDefaultPathUsesXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state-home")
	store, err := NewStore("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/state-home/viva/results.json", store.Path())
}
