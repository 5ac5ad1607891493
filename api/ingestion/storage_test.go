package ingestion

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"
)

type fakeFolderLister struct {
	folders map[string][]string
	calls   []string
}

func (f *fakeFolderLister) listFolder(ctx context.Context, dir string) ([]string, error) {
	f.calls = append(f.calls, dir)
	return f.folders[dir], nil
}

func TestWalkLeaves(t *testing.T) {
	l := &fakeFolderLister{folders: map[string][]string{
		"fieldops_commits/2025-08-21": {"set-1", "set-2"},
		"fieldops_commits/2025-08-21/set-1": {
			"manifest.json",
			"pacific.csv.jsonl",
		},
		"fieldops_commits/2025-08-21/set-2": {"manifest.json"},
	}}
	got, err := walkLeaves(context.Background(), l, "fieldops_commits/2025-08-21")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	want := []string{
		"fieldops_commits/2025-08-21/set-1/manifest.json",
		"fieldops_commits/2025-08-21/set-1/pacific.csv.jsonl",
		"fieldops_commits/2025-08-21/set-2/manifest.json",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("walkLeaves = %v, want %v", got, want)
	}
}

func TestWalkLeavesEmptyFolder(t *testing.T) {
	l := &fakeFolderLister{folders: map[string][]string{}}
	got, err := walkLeaves(context.Background(), l, "nothing/here")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("walkLeaves = %v, want empty", got)
	}
}

func TestWalkLeavesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := walkLeaves(ctx, &fakeFolderLister{}, "x"); err == nil {
		t.Error("expected context error")
	}
}

func TestStorageKeyPrefixes(t *testing.T) {
	anchor := time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)
	if got := StagePrefix("field ops", anchor, "set-9"); got != "field_ops/2025-08-21/set-9" {
		t.Errorf("StagePrefix = %q", got)
	}
	if got := CommitPrefix("field ops", anchor, "set-9"); got != "field_ops_commits/2025-08-21/set-9" {
		t.Errorf("CommitPrefix = %q", got)
	}
	if got := StagePrefix("  ", anchor, "set-9"); got != "unknown/2025-08-21/set-9" {
		t.Errorf("StagePrefix(blank) = %q", got)
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"a.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"a.XLS", "application/vnd.ms-excel"},
		{"a.csv", "text/csv"},
		{"manifest.json", "application/json"},
		{"rows.jsonl", "application/x-ndjson"},
		{"mystery", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := detectContentType(tt.file); got != tt.want {
			t.Errorf("detectContentType(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestNewObjectStoreUnknownDriver(t *testing.T) {
	if _, err := NewObjectStore(context.Background(), StorageConfig{Driver: "ftp"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
