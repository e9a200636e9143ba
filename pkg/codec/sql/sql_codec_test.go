package sql

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

func sqliteConfig(t *testing.T, opts map[string]string) codec.Config {
	t.Helper()
	options := map[string]string{
		"driver": "sqlite",
		"dsn":    filepath.Join(t.TempDir(), "train.db"),
		"table":  "samples",
	}
	for k, v := range opts {
		options[k] = v
	}
	return codec.Config{Options: options}
}

func TestQueries(t *testing.T) {
	c, err := New(codec.Config{
		InputSize: 2,
		IdealSize: 1,
		Options: map[string]string{
			"dsn":      "postgres://localhost/train",
			"driver":   "postgres",
			"table":    "public.xor",
			"order_by": "id ASC, batch",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT input0, input1, ideal0 FROM public.xor ORDER BY id ASC, batch", c.SelectQuery())
	assert.Equal(t, "INSERT INTO public.xor (input0, input1, ideal0) VALUES ($1, $2, $3)", c.InsertQuery())
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS public.xor (input0 DOUBLE PRECISION NOT NULL, input1 DOUBLE PRECISION NOT NULL, ideal0 DOUBLE PRECISION NOT NULL)",
		c.CreateTableQuery())

	c, err = New(codec.Config{Options: map[string]string{
		"dsn":           "user:pw@tcp(localhost:3306)/train",
		"driver":        "mysql",
		"table":         "xor",
		"input_columns": "a,b",
		"ideal_columns": "y",
	}})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), c.InputSize())
	assert.Equal(t, uint32(1), c.IdealSize())
	assert.Equal(t, "SELECT a, b, y FROM xor", c.SelectQuery())
	assert.Equal(t, "INSERT INTO xor (a, b, y) VALUES (?, ?, ?)", c.InsertQuery())
}

func TestInvalidOptions(t *testing.T) {
	cases := map[string]map[string]string{
		"missing dsn":      {"table": "t"},
		"missing table":    {"dsn": "x"},
		"injected table":   {"dsn": "x", "table": "t; DROP TABLE t"},
		"bad column":       {"dsn": "x", "table": "t", "input_columns": "a b"},
		"bad order":        {"dsn": "x", "table": "t", "order_by": "id; --"},
		"bad placeholder":  {"dsn": "x", "table": "t", "placeholder": "colon"},
		"bad create_table": {"dsn": "x", "table": "t", "create_table": "maybe"},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(codec.Config{Options: opts})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}

	_, err := New(codec.Config{InputSize: 3, Options: map[string]string{"dsn": "x", "table": "t", "input_columns": "a,b"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))
}

func TestRoundTrip(t *testing.T) {
	cfg := sqliteConfig(t, map[string]string{"create_table": "true", "order_by": "rowid"})
	w, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, w.PrepareWrite(4, 2, 1))

	records := [][3]float64{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1.0 / 3.0, -1e-300, 0}}
	for _, r := range records {
		require.NoError(t, w.Write(r[:2], r[2:]))
	}
	require.NoError(t, w.Close())

	cfg.InputSize, cfg.IdealSize = 2, 1
	r, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, r.PrepareRead())
	defer r.Close()

	input, ideal := make([]float64, 2), make([]float64, 1)
	for _, want := range records {
		ok, err := r.Read(input, ideal)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want[:2], input)
		assert.Equal(t, want[2:], ideal)
	}
	ok, err := r.Read(input, ideal)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSharedHandle(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE xor (a REAL, b REAL, y REAL)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO xor VALUES (1, 2, 3), (4, NULL, 6)")
	require.NoError(t, err)

	c, err := NewWithDB(codec.Config{Options: map[string]string{
		"table":         "xor",
		"input_columns": "a,b",
		"ideal_columns": "y",
		"order_by":      "a",
	}}, db)
	require.NoError(t, err)
	require.NoError(t, c.PrepareRead())

	input, ideal := make([]float64, 2), make([]float64, 1)
	ok, err := c.Read(input, ideal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, input)
	assert.Equal(t, []float64{3}, ideal)

	_, err = c.Read(input, ideal)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	require.NoError(t, c.Close())

	// the handle stays usable after the codec closes
	require.NoError(t, db.Ping())

	_, err = NewWithDB(codec.Config{}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFailedInsertRollsBack(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "checked.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE xor (a REAL CHECK (a < 10), y REAL)")
	require.NoError(t, err)

	c, err := NewWithDB(codec.Config{Options: map[string]string{
		"table":         "xor",
		"input_columns": "a",
		"ideal_columns": "y",
		"placeholder":   "question",
	}}, db)
	require.NoError(t, err)
	require.NoError(t, c.PrepareWrite(2, 1, 1))
	require.NoError(t, c.Write([]float64{1}, []float64{0}))

	err = c.Write([]float64{20}, []float64{1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	require.NoError(t, c.Close())

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM xor").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestPreconditions(t *testing.T) {
	c, err := New(sqliteConfig(t, map[string]string{"input_columns": "a", "ideal_columns": "y"}))
	require.NoError(t, err)

	_, err = c.Read(make([]float64, 1), make([]float64, 1))
	assert.True(t, errors.IsType(err, errors.ErrorTypePrecondition))
	assert.True(t, errors.IsType(c.Write(make([]float64, 1), make([]float64, 1)), errors.ErrorTypePrecondition))

	err = c.PrepareWrite(0, 2, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))

	// the table does not exist
	err = c.PrepareRead()
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	require.NoError(t, c.Close())

	zero, err := New(sqliteConfig(t, nil))
	require.NoError(t, err)
	assert.True(t, errors.IsType(zero.PrepareRead(), errors.ErrorTypePrecondition))
}
