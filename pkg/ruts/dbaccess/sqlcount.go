// Package dbaccess binds per-request data access state (SQL counters,
// access context, transactions) to context.Context and plugs it into gorm.
package dbaccess

import (
	"context"
	"fmt"
	"sync/atomic"
)

// RequestedSqlCount is a snapshot of the SQL executed during one request.
type RequestedSqlCount struct {
	SelectCB     int
	EntityUpdate int
	QueryUpdate  int
	OutsideSQL   int
	Procedure    int
}

// TotalCountOfSQL is the sum of every counter.
func (c RequestedSqlCount) TotalCountOfSQL() int {
	return c.SelectCB + c.EntityUpdate + c.QueryUpdate + c.OutsideSQL + c.Procedure
}

func (c RequestedSqlCount) String() string {
	return fmt.Sprintf("{total=%d, selectCB=%d, entityUpdate=%d, queryUpdate=%d, outsideSql=%d, procedure=%d}",
		c.TotalCountOfSQL(), c.SelectCB, c.EntityUpdate, c.QueryUpdate, c.OutsideSQL, c.Procedure)
}

// SQLCounter accumulates counts for a single request. Safe for concurrent use.
type SQLCounter struct {
	selectCB     atomic.Int64
	entityUpdate atomic.Int64
	queryUpdate  atomic.Int64
	outsideSQL   atomic.Int64
	procedure    atomic.Int64
}

// NewSQLCounter creates a zeroed counter.
func NewSQLCounter() *SQLCounter {
	return &SQLCounter{}
}

func (c *SQLCounter) IncrementSelectCB() { c.selectCB.Add(1) }
func (c *SQLCounter) IncrementEntityUpdate() { c.entityUpdate.Add(1) }
func (c *SQLCounter) IncrementQueryUpdate() { c.queryUpdate.Add(1) }
func (c *SQLCounter) IncrementOutsideSQL() { c.outsideSQL.Add(1) }
func (c *SQLCounter) IncrementProcedure() { c.procedure.Add(1) }

// Snapshot returns the current counts.
func (c *SQLCounter) Snapshot() RequestedSqlCount {
	return RequestedSqlCount{
		SelectCB:     int(c.selectCB.Load()),
		EntityUpdate: int(c.entityUpdate.Load()),
		QueryUpdate:  int(c.queryUpdate.Load()),
		OutsideSQL:   int(c.outsideSQL.Load()),
		Procedure:    int(c.procedure.Load()),
	}
}

type sqlCounterKey struct{}

// WithSQLCounter binds counter to ctx.
func WithSQLCounter(ctx context.Context, counter *SQLCounter) context.Context {
	return context.WithValue(ctx, sqlCounterKey{}, counter)
}

// SQLCounterFrom returns the counter bound to ctx, if any.
func SQLCounterFrom(ctx context.Context) (*SQLCounter, bool) {
	if ctx == nil {
		return nil, false
	}
	counter, ok := ctx.Value(sqlCounterKey{}).(*SQLCounter)
	return counter, ok
}
