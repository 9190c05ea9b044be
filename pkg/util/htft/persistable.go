package htft

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/richard-senior/htft/internal/logger"
	_ "modernc.org/sqlite"
)

// ErrStoreNotFound is returned when a read-only store does not exist
var ErrStoreNotFound = errors.New("match store not found")

// Persistable interface defines methods that persistent objects must implement
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
	BeforeSave() error
	AfterSave() error
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store is one open sqlite match store. Each caller opens its own Store, so
// concurrent loads never share a connection.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// OpenStore opens the sqlite database at path for writing, creating it and
// the match log table when missing
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	s, err := open(path, path, false)
	if err != nil {
		return nil, err
	}
	if err := s.CreateTable(&MatchRecord{}); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenStoreReadOnly opens an existing store without ever creating or
// modifying a file
func OpenStoreReadOnly(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return nil, fmt.Errorf("failed to open match store: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a file", ErrStoreNotFound, path)
	}
	return open(path, readOnlyDSN(path), true)
}

// readOnlyDSN builds a sqlite URI filename opening path in read-only mode
func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(filepath.ToSlash(path))
	return "file:" + escaped + "?mode=ro"
}

func open(path, dsn string, readOnly bool) (*Store, error) {
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" gets its own database
	d.SetMaxOpenConns(1)

	if err = d.Ping(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Debug("Database opened", path, "read-only", readOnly)
	return &Store{db: d, path: path, readOnly: readOnly}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the file the store was opened from
func (s *Store) Path() string {
	return s.path
}

// CreateTable creates a table for the given persistable object using struct tags
func (s *Store) CreateTable(obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range generateIndexSQL(obj, tableName) {
		logger.Debug("Creating index with SQL", query)
		if _, err := s.db.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// persistedFields visits every exported field carrying a dbtype tag
func persistedFields(obj any, visit func(field reflect.StructField, value reflect.Value, column string)) {
	objValue := reflect.ValueOf(obj)
	if objValue.Kind() == reflect.Ptr {
		objValue = objValue.Elem()
	}
	objType := objValue.Type()

	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() || field.Tag.Get("dbtype") == "" {
			continue
		}
		columnName := field.Tag.Get("column")
		if columnName == "" {
			columnName = strings.ToLower(field.Name)
		}
		visit(field, objValue.Field(i), columnName)
	}
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	var columns, primaryKeys []string

	persistedFields(obj, func(field reflect.StructField, _ reflect.Value, column string) {
		dbType := field.Tag.Get("dbtype")
		if field.Tag.Get("primary") == "true" {
			primaryKeys = append(primaryKeys, column)
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		columns = append(columns, fmt.Sprintf("%s %s", column, dbType))
	})

	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj any, tableName string) []string {
	var indexSQL []string
	persistedFields(obj, func(field reflect.StructField, _ reflect.Value, column string) {
		if field.Tag.Get("index") == "" {
			return
		}
		indexName := fmt.Sprintf("idx_%s_%s", tableName, column)
		indexSQL = append(indexSQL, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, column))
	})
	return indexSQL
}

// Save persists the object to the database (INSERT or UPDATE)
func (s *Store) Save(obj Persistable) error {
	return saveWith(s.db, obj)
}

func saveWith(x execer, obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}

	exists, err := existsWith(x, obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if exists {
		err = update(x, obj)
	} else {
		err = insert(x, obj)
	}
	if err != nil {
		return err
	}

	if err := obj.AfterSave(); err != nil {
		return fmt.Errorf("after save hook failed: %w", err)
	}
	return nil
}

// insert adds a new record to the database
func insert(x execer, obj Persistable) error {
	tableName := obj.GetTableName()
	var columns, placeholders []string
	var values []any
	persistedFields(obj, func(_ reflect.StructField, value reflect.Value, column string) {
		columns = append(columns, column)
		placeholders = append(placeholders, "?")
		values = append(values, value.Interface())
	})

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	logger.Debug("Insert SQL", query)

	if _, err := x.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

// update modifies an existing record in the database
func update(x execer, obj Persistable) error {
	tableName := obj.GetTableName()
	var setPairs []string
	var values []any
	persistedFields(obj, func(field reflect.StructField, value reflect.Value, column string) {
		if field.Tag.Get("primary") == "true" {
			return
		}
		setPairs = append(setPairs, fmt.Sprintf("%s = ?", column))
		values = append(values, value.Interface())
	})

	whereClause, whereValues := buildWhereClause(obj.GetPrimaryKey())
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(setPairs, ", "), whereClause)
	logger.Debug("Update SQL", query)

	if _, err := x.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to update %s: %w", tableName, err)
	}
	return nil
}

// Exists checks if the object exists in the database
func (s *Store) Exists(obj Persistable) (bool, error) {
	return existsWith(s.db, obj)
}

func existsWith(x execer, obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause)

	var count int
	if err := x.QueryRow(query, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// BulkSave saves multiple objects in a single transaction
func (s *Store) BulkSave(objects []Persistable) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, obj := range objects {
			if err := saveWith(tx, obj); err != nil {
				return fmt.Errorf("failed to save object: %w", err)
			}
		}
		return nil
	})
}

// ReplaceAll empties the table of obj and saves objects in its place, all in
// one transaction. On failure the previous contents are kept.
func (s *Store) ReplaceAll(obj Persistable, objects []Persistable) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + obj.GetTableName()); err != nil {
			return fmt.Errorf("failed to clear %s: %w", obj.GetTableName(), err)
		}
		for _, o := range objects {
			if err := saveWith(tx, o); err != nil {
				return fmt.Errorf("failed to save object: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteAll empties the table of obj
func (s *Store) DeleteAll(obj Persistable) error {
	if _, err := s.db.Exec("DELETE FROM " + obj.GetTableName()); err != nil {
		return fmt.Errorf("failed to clear %s: %w", obj.GetTableName(), err)
	}
	return nil
}

// FindAll retrieves all records of the given type, ordered by orderBy when set
func (s *Store) FindAll(obj Persistable, orderBy string) ([]any, error) {
	return s.query(obj, "", orderBy)
}

// FindWhere executes a custom WHERE query
func (s *Store) FindWhere(obj Persistable, whereClause string, args ...any) ([]any, error) {
	return s.query(obj, whereClause, "", args...)
}

func (s *Store) query(obj Persistable, whereClause, orderBy string, args ...any) ([]any, error) {
	tableName := obj.GetTableName()
	columns, _ := getSelectData(obj)

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), tableName)
	if whereClause != "" {
		q += " WHERE " + whereClause
	}
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	logger.Debug("Query SQL", q)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var results []any
	for rows.Next() {
		newObj := reflect.New(objType).Interface()
		_, destinations := getSelectData(newObj)
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, newObj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// getSelectData extracts column names and scan destinations for SELECT
func getSelectData(obj any) ([]string, []any) {
	var columns []string
	var destinations []any
	persistedFields(obj, func(_ reflect.StructField, value reflect.Value, column string) {
		columns = append(columns, column)
		destinations = append(destinations, value.Addr().Interface())
	})
	return columns, destinations
}

// buildWhereClause builds a WHERE clause from a primary key map. Columns are
// sorted so the generated SQL is stable.
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	keys := make([]string, 0, len(primaryKey))
	for k := range primaryKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys))
	for _, column := range keys {
		conditions = append(conditions, fmt.Sprintf("%s = ?", column))
		values = append(values, primaryKey[column])
	}
	return strings.Join(conditions, " AND "), values
}
