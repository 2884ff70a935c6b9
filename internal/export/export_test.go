package export_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"arena/internal/composite"
	"arena/internal/export"
	"arena/internal/media"
	"arena/internal/session"
)

type fakeRenderer struct {
	dir      string
	failCase string
	calls    []string
	inFlight atomic.Int32
	overlap  bool
}

func (f *fakeRenderer) Render(ctx context.Context, kind media.Kind, tiles []composite.Tile) (composite.Artifact, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap = true
	}
	defer f.inFlight.Add(-1)

	name := media.BaseName(tiles[0].Source.Path)
	f.calls = append(f.calls, name)
	if name == f.failCase {
		return composite.Artifact{}, &composite.SourceError{VariantID: "b", Name: name, Err: errors.New("decode failed")}
	}
	path := filepath.Join(f.dir, name+".png")
	if err := os.WriteFile(path, []byte("png:"+name), 0o644); err != nil {
		return composite.Artifact{}, err
	}
	return composite.Artifact{Path: path, Ext: "png", Width: 20, Height: 10}, nil
}

func fixture(t *testing.T) (*session.Session, []session.TestCase, []session.VoteResult) {
	t.Helper()
	sess := &session.Session{
		ID:       "sess",
		Kind:     media.KindImage,
		Variants: []session.Variant{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}},
	}
	var queue []session.TestCase
	for _, name := range []string{"c1", "c2", "c3", "c4"} {
		queue = append(queue, session.TestCase{
			ID:   name,
			Name: name,
			Sources: []media.Source{
				media.LocalSource("a", "/a/"+name+".png"),
				media.LocalSource("b", "/b/"+name+".png"),
			},
		})
	}
	results := []session.VoteResult{
		{CaseID: "c3", CaseName: "c3", Winner: "a", Representative: true},
		{CaseID: "c1", CaseName: "c1", Winner: "b", Representative: true},
		{CaseID: "c4", CaseName: "c4", Winner: session.Tie},
		{CaseID: "c2", CaseName: "c2", Winner: "a", Representative: true},
	}
	return sess, queue, results
}

func TestExportWritesArchiveInQueueOrder(t *testing.T) {
	sess, queue, results := fixture(t)
	renderer := &fakeRenderer{dir: t.TempDir()}
	var progress []export.Progress
	exp := export.New(sess, renderer, export.Options{
		Suffix:     "_comparison",
		ReportName: "results.xlsx",
		OnProgress: func(p export.Progress) { progress = append(progress, p) },
	})
	dest := filepath.Join(t.TempDir(), "export.zip")
	res, err := exp.Export(context.Background(), queue, results, dest)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := []string{"c1_comparison.png", "c2_comparison.png", "c3_comparison.png", "results.xlsx"}
	if !reflect.DeepEqual(res.Entries, want) {
		t.Fatalf("entries = %v", res.Entries)
	}
	if !reflect.DeepEqual(renderer.calls, []string{"c1", "c2", "c3"}) || renderer.overlap {
		t.Fatalf("render calls = %v overlap=%v", renderer.calls, renderer.overlap)
	}
	if len(progress) != 3 || progress[1] != (export.Progress{Index: 2, Total: 3, CaseName: "c2"}) {
		t.Fatalf("progress = %+v", progress)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("archive entries = %v", names)
	}
	leftovers, _ := os.ReadDir(renderer.dir)
	if len(leftovers) != 0 {
		t.Fatalf("artifacts not discarded: %d", len(leftovers))
	}
}

func TestExportAbortsWholeBatchOnCaseFailure(t *testing.T) {
	sess, queue, results := fixture(t)
	renderer := &fakeRenderer{dir: t.TempDir(), failCase: "c2"}
	var progress []export.Progress
	exp := export.New(sess, renderer, export.Options{
		Suffix:     "_comparison",
		OnProgress: func(p export.Progress) { progress = append(progress, p) },
	})
	destDir := t.TempDir()
	dest := filepath.Join(destDir, "export.zip")
	_, err := exp.Export(context.Background(), queue, results, dest)

	caseErr, ok := export.IsCaseError(err)
	if !ok {
		t.Fatalf("expected CaseError, got %v", err)
	}
	if caseErr.Index != 2 || caseErr.Total != 3 || caseErr.CaseName != "c2" {
		t.Fatalf("case error = %+v", caseErr)
	}
	var srcErr *composite.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("source error not preserved: %v", err)
	}
	if !reflect.DeepEqual(renderer.calls, []string{"c1", "c2"}) {
		t.Fatalf("render calls = %v, c3 must not run", renderer.calls)
	}
	if len(progress) != 2 {
		t.Fatalf("progress events = %d", len(progress))
	}
	entries, _ := os.ReadDir(destDir)
	if len(entries) != 0 {
		t.Fatalf("destination dir should be empty, has %d entries", len(entries))
	}
	leftovers, _ := os.ReadDir(renderer.dir)
	if len(leftovers) != 0 {
		t.Fatalf("artifacts not discarded: %d", len(leftovers))
	}
}

func TestExportWithoutMarkedCasesWritesReportOnly(t *testing.T) {
	sess, queue, _ := fixture(t)
	renderer := &fakeRenderer{dir: t.TempDir()}
	exp := export.New(sess, renderer, export.Options{})
	dest := filepath.Join(t.TempDir(), "export.zip")
	res, err := exp.Export(context.Background(), queue, nil, dest)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !reflect.DeepEqual(res.Entries, []string{"results.xlsx"}) || len(renderer.calls) != 0 {
		t.Fatalf("entries = %v, calls = %v", res.Entries, renderer.calls)
	}
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name, suffix, ext, want string
	}{
		{"clip01", "_comparison", "mp4", "clip01_comparison.mp4"},
		{"clip01", "_comparison", ".webm", "clip01_comparison.webm"},
		{"a/b:c", "", "png", "a-b-c.png"},
		{"  ", "_x", "png", "case_x.png"},
	}
	for _, tt := range tests {
		if got := export.ArtifactName(tt.name, tt.suffix, tt.ext); got != tt.want {
			t.Errorf("ArtifactName(%q, %q, %q) = %q, want %q", tt.name, tt.suffix, tt.ext, got, tt.want)
		}
	}
}

func TestTilesFollowSessionOrder(t *testing.T) {
	sess, queue, _ := fixture(t)
	tiles := export.Tiles(queue[0], sess.Variants)
	if len(tiles) != 2 || tiles[0].Label != "Alpha" || tiles[1].Source.VariantID != "b" {
		t.Fatalf("tiles = %+v", tiles)
	}
}
