package dbaccess

import (
	"context"
	"reflect"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SQLCountPlugin counts every statement gorm executes into the SQLCounter
// bound to the statement context.
type SQLCountPlugin struct{}

func (SQLCountPlugin) Name() string {
	return "ruts:sql_count"
}

func (p SQLCountPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().After("gorm:query").Register("ruts:count_query", countWith(func(c *SQLCounter, _ *gorm.DB) {
		c.IncrementSelectCB()
	})); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("ruts:count_create", countWith(func(c *SQLCounter, _ *gorm.DB) {
		c.IncrementEntityUpdate()
	})); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("ruts:count_update", countWith(countModification)); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("ruts:count_delete", countWith(countModification)); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("ruts:count_row", countWith(countOutside)); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("ruts:count_raw", countWith(countOutside))
}

func countWith(fn func(*SQLCounter, *gorm.DB)) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.DryRun || db.Statement.SQL.Len() == 0 {
			return
		}
		counter, ok := SQLCounterFrom(db.Statement.Context)
		if !ok {
			return
		}
		fn(counter, db)
	}
}

func countModification(c *SQLCounter, db *gorm.DB) {
	if hasPrimaryKeyValue(db.Statement) {
		c.IncrementEntityUpdate()
	} else {
		c.IncrementQueryUpdate()
	}
}

func countOutside(c *SQLCounter, db *gorm.DB) {
	if IsProcedureCall(db.Statement.SQL.String()) {
		c.IncrementProcedure()
	} else {
		c.IncrementOutsideSQL()
	}
}

// IsProcedureCall reports whether sql invokes a stored procedure.
func IsProcedureCall(sql string) bool {
	trimmed := strings.TrimLeft(sql, " \t\r\n{")
	return len(trimmed) >= 5 && strings.EqualFold(trimmed[:5], "call ")
}

func hasPrimaryKeyValue(stmt *gorm.Statement) bool {
	if stmt.Schema == nil || stmt.Schema.PrioritizedPrimaryField == nil {
		return false
	}
	rv := reflect.Indirect(stmt.ReflectValue)
	if rv.Kind() != reflect.Struct || rv.Type() != stmt.Schema.ModelType {
		return false
	}
	_, zero := stmt.Schema.PrioritizedPrimaryField.ValueOf(stmt.Context, rv)
	return !zero
}

// Common column fields filled from the AccessContext.
const (
	RegisterUserField     = "RegisterUser"
	RegisterDatetimeField = "RegisterDatetime"
	UpdateUserField       = "UpdateUser"
	UpdateDatetimeField   = "UpdateDatetime"
)

// AccessColumnPlugin fills register/update columns from the AccessContext
// bound to the statement context.
type AccessColumnPlugin struct{}

func (AccessColumnPlugin) Name() string {
	return "ruts:access_column"
}

func (AccessColumnPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("ruts:access_create", setupCreateColumns); err != nil {
		return err
	}
	return db.Callback().Update().Before("gorm:update").Register("ruts:access_update", setupUpdateColumns)
}

func setupCreateColumns(db *gorm.DB) {
	ac, ok := AccessContextFrom(db.Statement.Context)
	if !ok || db.Statement.Schema == nil {
		return
	}
	now := ac.AccessDateOrNow()
	values := map[string]any{
		RegisterUserField:     ac.AccessUser,
		RegisterDatetimeField: now,
		UpdateUserField:       ac.AccessUser,
		UpdateDatetimeField:   now,
	}
	rv := db.Statement.ReflectValue
	for name, value := range values {
		field := db.Statement.Schema.LookUpField(name)
		if field == nil {
			continue
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				setFieldValue(db, field, reflect.Indirect(rv.Index(i)), value)
			}
		case reflect.Struct:
			setFieldValue(db, field, rv, value)
		}
	}
}

func setupUpdateColumns(db *gorm.DB) {
	ac, ok := AccessContextFrom(db.Statement.Context)
	if !ok || db.Statement.Schema == nil {
		return
	}
	if db.Statement.Schema.LookUpField(UpdateUserField) != nil {
		db.Statement.SetColumn(UpdateUserField, ac.AccessUser)
	}
	if db.Statement.Schema.LookUpField(UpdateDatetimeField) != nil {
		db.Statement.SetColumn(UpdateDatetimeField, ac.AccessDateOrNow())
	}
}

func setFieldValue(db *gorm.DB, field *schema.Field, rv reflect.Value, value any) {
	if t, ok := value.(time.Time); ok && field.FieldType.Kind() == reflect.Pointer {
		value = &t
	}
	if err := field.Set(db.Statement.Context, rv, value); err != nil {
		_ = db.AddError(err)
	}
}

type txKey struct{}

// WithDB binds a gorm handle (usually a transaction) to ctx.
func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, db)
}

// DBFrom returns the handle bound to ctx, or fallback scoped to ctx.
func DBFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if db, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return db
	}
	return fallback.WithContext(ctx)
}

// TransactionRunner runs one action execute inside a transaction.
type TransactionRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTransactionRunner runs fn directly.
type NoTransactionRunner struct{}

func (NoTransactionRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// GormTransactionRunner commits when fn succeeds and rolls back otherwise.
type GormTransactionRunner struct {
	db *gorm.DB
}

// NewGormTransactionRunner creates a runner over db.
func NewGormTransactionRunner(db *gorm.DB) *GormTransactionRunner {
	return &GormTransactionRunner{db: db}
}

func (r *GormTransactionRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithDB(ctx, tx))
	})
}
