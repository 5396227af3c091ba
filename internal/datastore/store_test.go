package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/errors"
)

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	settings := &conf.DatastoreSettings{
		Type:   conf.DatastoreSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "nested", "analyzer.db")},
	}

	store, err := Open(t.Context(), settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.Equal(t, conf.DatastoreSQLite, store.Type())
	require.NoError(t, store.Ping(t.Context()))

	label, created, err := store.Labels.GetOrCreate(t.Context(), "cat")
	require.NoError(t, err)
	assert.True(t, created)

	wrapped := NewWithDB(store.DB(), nil)
	again, created, err := wrapped.Labels.GetOrCreate(t.Context(), "cat")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, label.ID, again.ID)
	assert.Equal(t, "sqlite", wrapped.Type())
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	settings := &conf.DatastoreSettings{
		Type:   conf.DatastoreSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "analyzer.db")},
	}

	store, err := Open(t.Context(), settings, nil)
	require.NoError(t, err)
	first, _, err := store.Labels.GetOrCreate(t.Context(), "bicycle")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(t.Context(), settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	again, created, err := store.Labels.GetOrCreate(t.Context(), "bicycle")
	require.NoError(t, err)
	assert.False(t, created, "labels survive restarts")
	assert.Equal(t, first.ID, again.ID)
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(t.Context(), nil, nil)
	require.Error(t, err)

	_, err = Open(t.Context(), &conf.DatastoreSettings{Type: "postgres"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := mysqlDSN(&conf.MySQLSettings{
		Username: "analyzer",
		Password: "secret",
		Host:     "db.local",
		Port:     "3306",
		Database: "images",
	})
	assert.Contains(t, dsn, "analyzer:secret@tcp(db.local:3306)/images")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
