// Package sql provides a database/sql table codec. Each row holds one record,
// one DOUBLE PRECISION column per value.
package sql

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	// drivers selectable through the driver option
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/logger"
)

// Placeholder styles for bind parameters
const (
	PlaceholderDollar   = "dollar"
	PlaceholderQuestion = "question"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	orderTermPattern  = regexp.MustCompile(`^(?i)([A-Za-z_][A-Za-z0-9_]*)(\s+(ASC|DESC))?$`)

	driverAliases = map[string]string{
		"postgres":   "pgx",
		"postgresql": "pgx",
		"pg":         "pgx",
	}
)

func init() {
	_ = codec.Register("sql", func(cfg codec.Config) (codec.DataSetCodec, error) {
		return New(cfg)
	})
}

// Codec reads records from and writes records to one table
type Codec struct {
	driver       string
	dsn          string
	table        string
	inputColumns []string
	idealColumns []string
	placeholder  string
	createTable  bool
	orderBy      string
	columnType   string

	inputSize uint32
	idealSize uint32

	db   *sql.DB
	owns bool

	rows *sql.Rows
	dest []interface{}
	vals []float64

	tx     *sql.Tx
	stmt   *sql.Stmt
	args   []interface{}
	failed bool
}

// New creates a table codec. Options: driver (pgx, mysql or any registered
// database/sql driver), dsn, table, input_columns, ideal_columns,
// placeholder (dollar or question), create_table, order_by, column_type.
// When columns are listed they fix the declared sizes.
func New(cfg codec.Config) (*Codec, error) {
	return newCodec(cfg, nil)
}

// NewWithDB creates a table codec over an existing handle. The handle is not
// closed by the codec.
func NewWithDB(cfg codec.Config, db *sql.DB) (*Codec, error) {
	if db == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "sql codec requires a database handle")
	}
	return newCodec(cfg, db)
}

func newCodec(cfg codec.Config, db *sql.DB) (*Codec, error) {
	c := &Codec{
		driver:       strings.ToLower(cfg.Option("driver", "pgx")),
		dsn:          cfg.Option("dsn", ""),
		table:        cfg.Option("table", ""),
		inputColumns: cfg.ListOption("input_columns"),
		idealColumns: cfg.ListOption("ideal_columns"),
		orderBy:      strings.TrimSpace(cfg.Option("order_by", "")),
		columnType:   cfg.Option("column_type", "DOUBLE PRECISION"),
		inputSize:    cfg.InputSize,
		idealSize:    cfg.IdealSize,
		db:           db,
	}
	if alias, ok := driverAliases[c.driver]; ok {
		c.driver = alias
	}

	if db == nil && c.dsn == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sql codec requires a dsn")
	}
	if !identifierPattern.MatchString(c.table) {
		return nil, errors.New(errors.ErrorTypeConfig, "sql codec requires a valid table name").
			WithDetail("table", c.table)
	}
	for _, col := range append(append([]string(nil), c.inputColumns...), c.idealColumns...) {
		if !identifierPattern.MatchString(col) {
			return nil, errors.New(errors.ErrorTypeConfig, "invalid column name").
				WithDetail("column", col)
		}
	}
	if c.orderBy != "" {
		for _, term := range strings.Split(c.orderBy, ",") {
			if !orderTermPattern.MatchString(strings.TrimSpace(term)) {
				return nil, errors.New(errors.ErrorTypeConfig, "invalid order_by clause").
					WithDetail("order_by", c.orderBy)
			}
		}
	}

	if err := c.adoptColumns(&c.inputSize, c.inputColumns, "input"); err != nil {
		return nil, err
	}
	if err := c.adoptColumns(&c.idealSize, c.idealColumns, "ideal"); err != nil {
		return nil, err
	}

	defaultPlaceholder := PlaceholderQuestion
	if c.driver == "pgx" {
		defaultPlaceholder = PlaceholderDollar
	}
	c.placeholder = strings.ToLower(cfg.Option("placeholder", defaultPlaceholder))
	if c.placeholder != PlaceholderDollar && c.placeholder != PlaceholderQuestion {
		return nil, errors.New(errors.ErrorTypeConfig, "placeholder must be dollar or question").
			WithDetail("placeholder", c.placeholder)
	}

	createTable, err := cfg.BoolOption("create_table", false)
	if err != nil {
		return nil, err
	}
	c.createTable = createTable
	return c, nil
}

func (c *Codec) adoptColumns(size *uint32, columns []string, prefix string) error {
	if len(columns) == 0 {
		return nil
	}
	if *size == 0 {
		*size = uint32(len(columns)) //nolint:gosec // column lists are small
		return nil
	}
	if int(*size) != len(columns) {
		return errors.Newf(errors.ErrorTypeSizeMismatch, "%d %s columns listed for %s size %d",
			len(columns), prefix, prefix, *size)
	}
	return nil
}

// InputSize returns the declared input size
func (c *Codec) InputSize() uint32 { return c.inputSize }

// IdealSize returns the declared ideal size
func (c *Codec) IdealSize() uint32 { return c.idealSize }

func (c *Codec) columns() []string {
	cols := make([]string, 0, int(c.inputSize)+int(c.idealSize))
	if len(c.inputColumns) > 0 {
		cols = append(cols, c.inputColumns...)
	} else {
		for i := 0; i < int(c.inputSize); i++ {
			cols = append(cols, "input"+strconv.Itoa(i))
		}
	}
	if len(c.idealColumns) > 0 {
		cols = append(cols, c.idealColumns...)
	} else {
		for i := 0; i < int(c.idealSize); i++ {
			cols = append(cols, "ideal"+strconv.Itoa(i))
		}
	}
	return cols
}

// SelectQuery returns the statement used to read records
func (c *Codec) SelectQuery() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(c.columns(), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(c.table)
	if c.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(c.orderBy)
	}
	return sb.String()
}

// InsertQuery returns the statement used to write one record
func (c *Codec) InsertQuery() string {
	cols := c.columns()
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(c.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		if c.placeholder == PlaceholderDollar {
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i + 1))
		} else {
			sb.WriteString("?")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// CreateTableQuery returns the statement issued when create_table is set
func (c *Codec) CreateTableQuery() string {
	cols := c.columns()
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(c.table)
	sb.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" ")
		sb.WriteString(c.columnType)
		sb.WriteString(" NOT NULL")
	}
	sb.WriteString(")")
	return sb.String()
}

func (c *Codec) open() error {
	if c.db != nil {
		return nil
	}
	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to open database").
			WithDetail("driver", c.driver)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to connect to database").
			WithDetail("driver", c.driver)
	}
	c.db, c.owns = db, true
	return nil
}

// PrepareRead issues the select
func (c *Codec) PrepareRead() error {
	if err := c.Close(); err != nil {
		return err
	}
	if int(c.inputSize)+int(c.idealSize) == 0 {
		return errors.New(errors.ErrorTypePrecondition, "sql codec declares zero-width records").
			WithDetail("table", c.table)
	}
	if err := c.open(); err != nil {
		return err
	}

	query := c.SelectQuery()
	logger.Debug("sql codec reading", zap.String("table", c.table), zap.String("query", query))
	rows, err := c.db.Query(query)
	if err != nil {
		_ = c.release()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to query records").
			WithDetail("table", c.table)
	}

	width := int(c.inputSize) + int(c.idealSize)
	c.rows = rows
	c.vals = make([]float64, width)
	c.dest = make([]interface{}, width)
	for i := range c.vals {
		c.dest[i] = &c.vals[i]
	}
	return nil
}

// PrepareWrite starts a transaction and prepares the insert
func (c *Codec) PrepareWrite(_ uint64, inputSize, idealSize uint32) error {
	if err := c.Close(); err != nil {
		return err
	}
	if err := c.adoptColumns(&inputSize, c.inputColumns, "input"); err != nil {
		return err
	}
	if err := c.adoptColumns(&idealSize, c.idealColumns, "ideal"); err != nil {
		return err
	}
	c.inputSize, c.idealSize = inputSize, idealSize
	if err := c.open(); err != nil {
		return err
	}

	tx, err := c.db.Begin()
	if err != nil {
		_ = c.release()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to begin transaction").
			WithDetail("table", c.table)
	}
	if c.createTable {
		if _, err := tx.Exec(c.CreateTableQuery()); err != nil {
			_ = tx.Rollback()
			_ = c.release()
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to create table").
				WithDetail("table", c.table)
		}
	}

	query := c.InsertQuery()
	logger.Debug("sql codec writing", zap.String("table", c.table), zap.String("query", query))
	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		_ = c.release()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to prepare insert").
			WithDetail("table", c.table)
	}

	c.tx, c.stmt = tx, stmt
	c.args = make([]interface{}, int(inputSize)+int(idealSize))
	return nil
}

// Read scans the next row into input and ideal
func (c *Codec) Read(input, ideal []float64) (bool, error) {
	if c.rows == nil {
		return false, errors.New(errors.ErrorTypePrecondition, "read before PrepareRead").
			WithDetail("table", c.table)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return false, err
	}

	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return false, errors.Wrap(err, errors.ErrorTypeIO, "failed to read rows").
				WithDetail("table", c.table)
		}
		return false, nil
	}
	if err := c.rows.Scan(c.dest...); err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeValidation, "row does not hold numeric values").
			WithDetail("table", c.table)
	}
	copy(input, c.vals[:len(input)])
	copy(ideal, c.vals[len(input):])
	return true, nil
}

// Write inserts one row
func (c *Codec) Write(input, ideal []float64) error {
	if c.stmt == nil {
		return errors.New(errors.ErrorTypePrecondition, "write before PrepareWrite").
			WithDetail("table", c.table)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return err
	}

	for i, v := range input {
		c.args[i] = v
	}
	for i, v := range ideal {
		c.args[len(input)+i] = v
	}
	if _, err := c.stmt.Exec(c.args...); err != nil {
		c.failed = true
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to insert record").
			WithDetail("table", c.table)
	}
	return nil
}

// Close ends the session. A write session commits its transaction, or rolls
// it back when an insert failed.
func (c *Codec) Close() error {
	var errs []error
	if c.rows != nil {
		if err := c.rows.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrorTypeIO, "failed to close rows"))
		}
		c.rows, c.dest, c.vals = nil, nil, nil
	}
	if c.tx != nil {
		if err := c.stmt.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrorTypeIO, "failed to close statement"))
		}
		if c.failed {
			if err := c.tx.Rollback(); err != nil {
				errs = append(errs, errors.Wrap(err, errors.ErrorTypeIO, "failed to roll back records").
					WithDetail("table", c.table))
			}
		} else if err := c.tx.Commit(); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrorTypeIO, "failed to commit records").
				WithDetail("table", c.table))
		}
		c.tx, c.stmt, c.args, c.failed = nil, nil, nil, false
	}
	if err := c.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Codec) release() error {
	if c.db == nil || !c.owns {
		return nil
	}
	err := c.db.Close()
	c.db, c.owns = nil, false
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close database")
	}
	return nil
}
