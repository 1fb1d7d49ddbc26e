package app

import (
	"context"
	"errors"
	"testing"

	"github.com/adou/portfolio-api/internal/testutil"
)

func TestAppCloseEmpty(t *testing.T) {
	a := &App{logger: testutil.DiscardLogger()}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestAppCloseFlushesTracer(t *testing.T) {
	flushed := false
	a := &App{
		logger: testutil.DiscardLogger(),
		traceCleanup: func(context.Context) error {
			flushed = true
			return nil
		},
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !flushed {
		t.Error("Close() did not flush the tracer")
	}
}

func TestAppCloseSwallowsTracerError(t *testing.T) {
	a := &App{
		logger: testutil.DiscardLogger(),
		traceCleanup: func(context.Context) error {
			return errors.New("collector gone")
		},
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
