package batch

import (
	"context"
	"errors"
	"testing"
)

func TestRunPreservesOrderAndCollectsErrors(t *testing.T) {
	jobs := []Job{
		{Path: "a.exe", Run: func(ctx context.Context, path string) (interface{}, error) { return 1, nil }},
		{Path: "b.exe", Run: func(ctx context.Context, path string) (interface{}, error) { return nil, errors.New("bad") }},
		{Path: "c.exe", Run: func(ctx context.Context, path string) (interface{}, error) { return 3, nil }},
	}
	results := Run(context.Background(), jobs, Options{Workers: 2})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Path != "a.exe" || results[0].Value != 1 || results[0].Err != nil {
		t.Fatalf("results[0] = %+v", results[0])
	}
	if results[1].Err == nil {
		t.Fatalf("results[1] should carry the job error, not abort the batch")
	}
	if results[2].Path != "c.exe" || results[2].Value != 3 {
		t.Fatalf("results[2] = %+v", results[2])
	}
}

func TestRunEmptyJobList(t *testing.T) {
	if results := Run(context.Background(), nil, Options{}); len(results) != 0 {
		t.Fatalf("expected no results for an empty job list, got %d", len(results))
	}
}
