package builder_test

import (
	"fmt"

	"github.com/locvowork/vacation_reports/internal/repository/builder"
)

func Example_listRuns() {
	sql, args := builder.NewSQLBuilder().
		Select("id", "operation", "status").
		From("vacation_runs").
		Where("operation = ?", "general_report").
		OrderBy("started_at DESC").
		Limit(5).
		Build()

	fmt.Println(sql)
	fmt.Println(args)
	// Output:
	// SELECT id, operation, status FROM vacation_runs WHERE operation = $1 ORDER BY started_at DESC LIMIT 5
	// [general_report]
}

func Example_upsertRun() {
	sql, args := builder.NewSQLBuilder().
		Insert("vacation_runs", "id", "status", "errors").
		Values("4f1c", "partial_error", 2).
		OnConflict("id", "status", "errors").
		Build()

	fmt.Println(sql)
	fmt.Println(len(args))
	// Output:
	// INSERT INTO vacation_runs (id, status, errors) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, errors = EXCLUDED.errors
	// 3
}
