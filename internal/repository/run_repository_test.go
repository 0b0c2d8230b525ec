package repository

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/vacation_reports/internal/domain"
)

func TestUpsertRunQuery(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	log := domain.NewOperationLog("block_reports", start)
	log.Info("started")
	log.Processed = 2
	log.OutputFiles = []string{"/out/a.xlsx"}
	log.Finish(domain.StatusSuccess, start.Add(time.Second))

	query, args := upsertRunQuery(log)
	assert.Contains(t, query, "INSERT INTO vacation_runs (id, operation, status, processed, errors, started_at, finished_at, messages, output_files) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status")
	require.Len(t, args, 9)
	assert.Equal(t, log.ID, args[0])
	assert.Equal(t, "success", args[2])
	assert.Equal(t, 2, args[3])
	assert.Equal(t, 1, args[7])
	assert.Equal(t, pq.Array([]string{"/out/a.xlsx"}), args[8])
}

func TestUpsertRunQuery_Unfinished(t *testing.T) {
	log := domain.NewOperationLog("employee_files", time.Now())
	_, args := upsertRunQuery(log)
	assert.Nil(t, args[6])
	assert.Equal(t, pq.Array([]string{}), args[8])
}

func TestListRunsQuery(t *testing.T) {
	query, args := listRunsQuery(domain.RunFilter{})
	assert.Equal(t, "SELECT id, operation, status, processed, errors, started_at, COALESCE(finished_at, started_at), messages FROM vacation_runs ORDER BY started_at DESC", query)
	assert.Empty(t, args)

	query, args = listRunsQuery(domain.RunFilter{Operation: "general_report", Limit: 10, Offset: 5})
	assert.Contains(t, query, "WHERE operation = $1 ORDER BY started_at DESC LIMIT 10 OFFSET 5")
	assert.Equal(t, []interface{}{"general_report"}, args)
}
