package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/melosso/reef-sub003/internal/config"
	"github.com/melosso/reef-sub003/internal/parse"
)

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			PreviewRows:   100,
			BatchSize:     50,
			Timeout:       time.Minute,
		},
	}
}

func TestPreviewCountsAndSamples(t *testing.T) {
	svc := NewService(nil, testConfig())

	input := "id,name\n1,alpha\n2,\"broken\n3,gamma\n"
	res, err := svc.Preview(context.Background(), "CSV", strings.NewReader(input),
		parse.FormatConfig{HasHeader: true}, nil)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if res.Summary.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", res.Summary.TotalRows)
	}
	if res.Summary.DataRows != 2 {
		t.Errorf("DataRows = %d, want 2", res.Summary.DataRows)
	}
	if res.Summary.ErrorRows != 1 {
		t.Errorf("ErrorRows = %d, want 1", res.Summary.ErrorRows)
	}
	if res.Summary.Truncated {
		t.Error("Truncated = true for a file under the cap")
	}
	if len(res.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(res.Rows))
	}
	if len(res.Errors) != 1 || res.Errors[0].LineNumber != 2 {
		t.Fatalf("Errors = %+v, want one error at line 2", res.Errors)
	}
}

func TestPreviewStopsAtRowCap(t *testing.T) {
	cfg := testConfig()
	cfg.Import.PreviewRows = 5
	svc := NewService(nil, cfg)

	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < 50; i++ {
		b.WriteString("row\n")
	}

	res, err := svc.Preview(context.Background(), "CSV", strings.NewReader(b.String()),
		parse.FormatConfig{HasHeader: true}, nil)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if res.Summary.TotalRows != 5 {
		t.Errorf("TotalRows = %d, want 5", res.Summary.TotalRows)
	}
	if !res.Summary.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestPreviewDetectsInFileDuplicates(t *testing.T) {
	svc := NewService(nil, testConfig())

	input := "id,name\n1,alpha\n2,beta\n1,alpha-again\n"
	res, err := svc.Preview(context.Background(), "CSV", strings.NewReader(input),
		parse.FormatConfig{HasHeader: true}, []string{"id"})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if res.Summary.DuplicateInFile != 1 {
		t.Fatalf("DuplicateInFile = %d, want 1", res.Summary.DuplicateInFile)
	}
	dup := res.Duplicates[0]
	if dup.Key != "1" {
		t.Errorf("duplicate key = %q, want %q", dup.Key, "1")
	}
	if len(dup.LineNumbers) != 2 || dup.LineNumbers[0] != 1 || dup.LineNumbers[1] != 3 {
		t.Errorf("duplicate lines = %v, want [1 3]", dup.LineNumbers)
	}
}

func TestPreviewUnsupportedFormat(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.Preview(context.Background(), "parquet", strings.NewReader(""), parse.FormatConfig{}, nil)
	if err == nil {
		t.Fatal("Preview() expected error for unsupported format")
	}
}

func TestCompareClassifiesChanges(t *testing.T) {
	svc := NewService(nil, testConfig())

	previous := "id,name\n1,alpha\n2,beta\n3,gamma\n"
	current := "id,name\n1,alpha\n2,BETA\n4,delta\n"

	res, err := svc.Compare(context.Background(), "CSV",
		strings.NewReader(previous), strings.NewReader(current),
		parse.FormatConfig{HasHeader: true}, []string{"id"})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if got := res.Changes.Added; len(got) != 1 || got[0] != "4" {
		t.Errorf("Added = %v, want [4]", got)
	}
	if got := res.Changes.Changed; len(got) != 1 || got[0] != "2" {
		t.Errorf("Changed = %v, want [2]", got)
	}
	if got := res.Changes.Removed; len(got) != 1 || got[0] != "3" {
		t.Errorf("Removed = %v, want [3]", got)
	}
	if res.Changes.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", res.Changes.Unchanged)
	}
	if res.PreviousRows != 3 || res.CurrentRows != 3 {
		t.Errorf("row counts = %d/%d, want 3/3", res.PreviousRows, res.CurrentRows)
	}
}

func TestCompareSkipsErrorRows(t *testing.T) {
	svc := NewService(nil, testConfig())

	previous := "id,name\n1,alpha\n"
	current := "id,name\n1,alpha\n2,\"oops\n"

	res, err := svc.Compare(context.Background(), "CSV",
		strings.NewReader(previous), strings.NewReader(current),
		parse.FormatConfig{HasHeader: true}, []string{"id"})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if res.ErrorRows != 1 {
		t.Errorf("ErrorRows = %d, want 1", res.ErrorRows)
	}
	if len(res.Changes.Added) != 0 || len(res.Changes.Removed) != 0 {
		t.Errorf("Changes = %+v, want none besides unchanged", res.Changes)
	}
}

func TestLoadWithoutDatabase(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.Load(context.Background(), "orders", "CSV", strings.NewReader("a\n1\n"), 4,
		parse.FormatConfig{HasHeader: true})
	if err != ErrLoadingDisabled {
		t.Fatalf("Load() error = %v, want ErrLoadingDisabled", err)
	}
}

func TestAcquireTimesOutWhenSlotsBusy(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxConcurrent = 1
	cfg.Import.MaxWaitTime = 10 * time.Millisecond
	svc := NewService(nil, cfg)

	release, err := svc.acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire error = %v", err)
	}
	defer release()

	if _, err := svc.acquire(context.Background()); err != ErrTooManyImports {
		t.Fatalf("second acquire error = %v, want ErrTooManyImports", err)
	}
}
