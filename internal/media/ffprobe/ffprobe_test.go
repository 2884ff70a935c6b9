package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "audio"},
			{Index: 1, CodecType: "video", Width: 640, Height: 360, Duration: "9.5"},
		},
		Format: Format{Duration: "10.0"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	w, h, err := result.Dimensions()
	if err != nil || w != 640 || h != 360 {
		t.Fatalf("Dimensions = %dx%d, %v", w, h, err)
	}
	if result.DurationSeconds() != 10 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}

	result.Format.Duration = ""
	if result.DurationSeconds() != 9.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	result.Format.Duration = "bad"
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN for unparseable duration, got %v", result.DurationSeconds())
	}
}

func TestDimensionsRequiresVideo(t *testing.T) {
	if _, _, err := (Result{Streams: []Stream{{CodecType: "audio"}}}).Dimensions(); err == nil {
		t.Fatal("expected error without video stream")
	}
	if _, _, err := (Result{Streams: []Stream{{CodecType: "video"}}}).Dimensions(); err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestInspectParsesStubOutput(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n{\"streams\":[{\"index\":0,\"codec_type\":\"video\",\"width\":320,\"height\":240}],\"format\":{\"duration\":\"2.5\"}}\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	result, err := Inspect(context.Background(), stub, "/media/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if w, h, _ := result.Dimensions(); w != 320 || h != 240 {
		t.Fatalf("unexpected dimensions %dx%d", w, h)
	}
	if result.DurationSeconds() != 2.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if _, err := Inspect(context.Background(), stub, "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
