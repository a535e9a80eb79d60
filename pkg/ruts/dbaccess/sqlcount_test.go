package dbaccess

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestedSqlCount_Total(t *testing.T) {
	cases := []RequestedSqlCount{
		{},
		{SelectCB: 1},
		{SelectCB: 3, EntityUpdate: 2, QueryUpdate: 1, OutsideSQL: 4, Procedure: 5},
		{Procedure: 9, OutsideSQL: 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.SelectCB+c.EntityUpdate+c.QueryUpdate+c.OutsideSQL+c.Procedure, c.TotalCountOfSQL())
	}
}

func TestRequestedSqlCount_String(t *testing.T) {
	c := RequestedSqlCount{SelectCB: 1, EntityUpdate: 2, QueryUpdate: 1, OutsideSQL: 2, Procedure: 1}
	assert.Equal(t, "{total=7, selectCB=1, entityUpdate=2, queryUpdate=1, outsideSql=2, procedure=1}", c.String())
}

func TestSQLCounter_ConcurrentIncrement(t *testing.T) {
	counter := NewSQLCounter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.IncrementSelectCB()
			counter.IncrementOutsideSQL()
		}()
	}
	wg.Wait()

	snapshot := counter.Snapshot()
	assert.Equal(t, 50, snapshot.SelectCB)
	assert.Equal(t, 50, snapshot.OutsideSQL)
	assert.Equal(t, 100, snapshot.TotalCountOfSQL())
}

func TestSQLCounterFrom(t *testing.T) {
	_, ok := SQLCounterFrom(context.Background())
	assert.False(t, ok)

	counter := NewSQLCounter()
	found, ok := SQLCounterFrom(WithSQLCounter(context.Background(), counter))
	require.True(t, ok)
	assert.Same(t, counter, found)
}

func TestIsProcedureCall(t *testing.T) {
	assert.True(t, IsProcedureCall("CALL sp_land(?)"))
	assert.True(t, IsProcedureCall("  {call sp_land(?)}"))
	assert.False(t, IsProcedureCall("select * from callback"))
	assert.False(t, IsProcedureCall("CALLS"))
}
