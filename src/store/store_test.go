package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, policy DuplicatePolicy) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(Config{DatabasePath: path, OnDuplicate: policy})
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := New(Config{DatabasePath: path})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Initialize())

	_, err = os.Stat(path)
	require.NoError(t, err, "database file was not created")
}

func TestInitialize_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open and initialize the same database repeatedly; repeat calls must
	// neither error nor duplicate schema objects.
	for i := 0; i < 3; i++ {
		s, err := New(Config{DatabasePath: path})
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, s.Initialize(), "initialize iteration %d", i)
		require.NoError(t, s.Initialize(), "re-initialize iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := New(Config{DatabasePath: path})
	require.NoError(t, err)
	defer s.Close()

	for _, object := range []struct{ typ, name string }{
		{"table", "transactions"},
		{"index", "idx_transactions_source_id"},
		{"index", "idx_transactions_time"},
		{"index", "idx_transactions_category"},
		{"trigger", "update_transactions_updated_at"},
	} {
		var count int
		err := s.DB().QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?",
			object.typ, object.name,
		).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "%s %q should exist exactly once", object.typ, object.name)
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    DuplicatePolicy
		wantErr bool
	}{
		{"reject", DuplicateReject, false},
		{"ignore", DuplicateIgnore, false},
		{"IGNORE", DuplicateIgnore, false},
		{" reject ", DuplicateReject, false},
		{"", DuplicateReject, false},
		{"upsert", DuplicateReject, true},
	}
	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.input)
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		require.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
