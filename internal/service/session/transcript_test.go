package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consultant/internal/model/chat"
)

var sameInstant = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func seededStore(t *testing.T) (*Store, *Session) {
	t.Helper()
	store := NewStore(WithClock(frozenClock()))
	info := store.Create("Q1 Launch")
	sess, err := store.Get(info.ID)
	require.NoError(t, err)

	base := time.Date(2024, 3, 15, 10, 31, 0, 123456789, time.UTC)
	sess.Buffer().Append(chat.NewMessage(chat.RoleUser, "industry=bakery", base))
	sess.Buffer().Append(chat.NewMessage(chat.RoleAssistant, "PLAN-X\n- post daily", base.Add(2*time.Second)))
	return store, sess
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, name := range []string{"transcript.json", "transcript.yaml"} {
		t.Run(name, func(t *testing.T) {
			store, sess := seededStore(t)
			path := filepath.Join(t.TempDir(), "nested", name)

			require.NoError(t, store.Export(sess.ID(), path))

			restored := NewStore()
			info, err := restored.Import(path)
			require.NoError(t, err)

			got, err := restored.Get(info.ID)
			require.NoError(t, err)

			assert.Equal(t, "Q1 Launch", info.Name)
			assert.True(t, info.CreatedAt.Equal(sess.Info().CreatedAt))
			if diff := cmp.Diff(sess.Buffer().Snapshot(), got.Buffer().Snapshot(), sameInstant); diff != "" {
				t.Fatalf("history mismatch (-want +got):\n%s", diff)
			}

			current, ok := restored.Current()
			require.True(t, ok)
			assert.Equal(t, info.ID, current.ID())
		})
	}
}

func TestExportDocumentKeys(t *testing.T) {
	store, sess := seededStore(t)
	path := filepath.Join(t.TempDir(), DefaultExportName(sess.ID()))
	require.NoError(t, store.Export("", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"name"`, `"created_at"`, `"history"`, `"role"`, `"content"`, `"timestamp"`} {
		assert.Contains(t, string(data), key)
	}
	assert.Contains(t, string(data), "2024-03-15T10:31:00.123456789Z")
}

func TestExportOverwrites(t *testing.T) {
	store, sess := seededStore(t)
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, store.Export(sess.ID(), path))

	sess.Buffer().Clear()
	require.NoError(t, store.Export(sess.ID(), path))

	restored := NewStore()
	info, err := restored.Import(path)
	require.NoError(t, err)
	got, _ := restored.Get(info.ID)
	assert.Equal(t, 0, got.Buffer().Len())
}

func TestExportWithoutCurrentSession(t *testing.T) {
	err := NewStore().Export("", filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestExportUnknownSession(t *testing.T) {
	store, _ := seededStore(t)
	err := store.Export("missing", filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExportUnwritableDestination(t *testing.T) {
	store, sess := seededStore(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := store.Export(sess.ID(), filepath.Join(blocker, "out.json"))
	assert.ErrorIs(t, err, ErrWriteFailure)
}

func TestImportCorrupt(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o600))

	_, err := NewStore().Import(garbage)
	assert.ErrorIs(t, err, ErrCorruptTranscript)

	systemRole := filepath.Join(dir, "system.json")
	require.NoError(t, os.WriteFile(systemRole, []byte(`{"name":"x","history":[{"role":"system","content":"hi"}]}`), 0o600))
	_, err = NewStore().Import(systemRole)
	assert.ErrorIs(t, err, ErrCorruptTranscript)
}

func TestImportMissingFile(t *testing.T) {
	store := NewStore()
	_, err := store.Import(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrCorruptTranscript)
	assert.Empty(t, store.List())
}
