package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func bufferContext() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	return l.WithContext(context.Background()), &buf
}

func TestWithRunAddsFields(t *testing.T) {
	ctx, buf := bufferContext()
	ctx = WithRun(ctx, "run-1", "employee_files")

	InfoLog(ctx, "created %d files", 3)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"operation":"employee_files"`)
	assert.Contains(t, out, `"message":"created 3 files"`)
}

func TestErrorLogAttachesError(t *testing.T) {
	ctx, buf := bufferContext()

	ErrorLog(ctx, errors.New("disk full"), "write %s", "a.xlsx")

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"message":"write a.xlsx"`)
}

func TestErrorLogWithoutError(t *testing.T) {
	ctx, buf := bufferContext()

	ErrorLog(ctx, nil, "missing %s", "Sales")
	WarnLog(ctx, "slow")

	out := buf.String()
	assert.Contains(t, out, `"message":"missing Sales"`)
	assert.NotContains(t, out, `"error"`)
	assert.Contains(t, out, `"level":"warn"`)
}
