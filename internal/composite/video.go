package composite

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/media/ffprobe"
	"arena/internal/services"
)

// inspectMedia is swapped in tests.
var inspectMedia = ffprobe.Inspect

// runFFmpeg executes ffmpeg, forwarding every key=value line written to
// stdout by -progress pipe:1. It is swapped in tests.
var runFFmpeg = func(ctx context.Context, binary string, args []string, onProgress func(key, value string)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if ok && onProgress != nil {
			onProgress(key, value)
		}
	}
	_, _ = io.Copy(io.Discard, stdout)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

type videoInput struct {
	location string
	width    int
	height   int
	duration float64
}

func (r *Renderer) renderVideo(ctx context.Context, logger *slog.Logger, tiles []Tile, handles []*media.Handle) (Artifact, error) {
	inputs := make([]videoInput, len(tiles))
	for i, h := range handles {
		in, err := r.probe(ctx, h)
		if err != nil {
			return Artifact{}, sourceError(tiles[i], services.ErrDecode, "probe", err)
		}
		inputs[i] = in
	}

	format, err := r.videoFormat(ctx)
	if err != nil {
		return Artifact{}, err
	}

	scratch, err := os.MkdirTemp(r.opts.WorkDir, "labels-")
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: label scratch: %w", ErrSurface, err)
	}
	defer os.RemoveAll(scratch)

	geo := tileGeometry(inputs)
	scale := r.opts.LabelScale
	if scale <= 0 {
		scale = AutoLabelScale(geo.height)
	}
	labelPaths := make([]string, len(tiles))
	for i, tile := range tiles {
		path := filepath.Join(scratch, fmt.Sprintf("label-%02d.png", i))
		if err := writeLabel(path, tile.Label, scale); err != nil {
			return Artifact{}, fmt.Errorf("%w: write label: %w", ErrSurface, err)
		}
		labelPaths[i] = path
	}

	output, err := r.outputPath(format.Ext)
	if err != nil {
		return Artifact{}, err
	}
	args := r.ffmpegArgs(inputs, labelPaths, geo, format, output)
	logger.Debug("ffmpeg composite",
		logging.String("encoder", format.Encoder),
		logging.Int("width", geo.outWidth),
		logging.Int("height", geo.outHeight),
		logging.Float64("duration_seconds", geo.duration),
	)

	sampler := logging.NewProgressSampler(10)
	err = runFFmpeg(ctx, r.opts.FFmpeg, args, func(key, value string) {
		p, ok := parseProgress(key, value, geo.duration)
		if !ok {
			return
		}
		if r.opts.OnProgress != nil {
			r.opts.OnProgress(p)
		}
		if sampler.ShouldLog(p.Percent, p.Stage) {
			logger.Info("composite progress",
				logging.String(logging.FieldEventType, "composite_progress"),
				logging.String(logging.FieldStage, p.Stage),
				logging.Float64("percent", math.Round(p.Percent)),
			)
		}
	})
	if err != nil {
		_ = os.Remove(output)
		return Artifact{}, services.Wrap(services.ErrEncode, "composite", "encode video", format.Encoder, err)
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(output)
		if err == nil {
			err = fmt.Errorf("empty output")
		}
		return Artifact{}, services.Wrap(services.ErrEncode, "composite", "encode video", "no output produced", err)
	}
	encoded, err := r.verifyDuration(ctx, output, geo.duration)
	if err != nil {
		_ = os.Remove(output)
		return Artifact{}, err
	}
	return Artifact{
		Path:     output,
		Ext:      format.Ext,
		Width:    geo.outWidth,
		Height:   geo.outHeight,
		Size:     info.Size(),
		Duration: time.Duration(encoded * float64(time.Second)),
	}, nil
}

// verifyDuration probes the encoded composite and fails unless it runs at
// least want and at most one frame longer. ffprobe reports milliseconds, so
// the lower bound allows a millisecond of rounding.
func (r *Renderer) verifyDuration(ctx context.Context, output string, want float64) (float64, error) {
	result, err := inspectMedia(ctx, r.opts.FFprobe, output)
	if err != nil {
		return 0, services.Wrap(services.ErrEncode, "composite", "verify output", "composite is unreadable", err)
	}
	got := result.DurationSeconds()
	frame := 1 / float64(r.opts.FPS)
	if math.IsNaN(got) || got < want-0.001 || got > want+frame {
		return 0, services.Wrap(services.ErrEncode, "composite", "verify output",
			fmt.Sprintf("composite runs %ss, expected %ss", formatSeconds(got), formatSeconds(want)), nil)
	}
	return got, nil
}

func (r *Renderer) probe(ctx context.Context, h *media.Handle) (videoInput, error) {
	result, err := inspectMedia(ctx, r.opts.FFprobe, h.Location())
	if err != nil {
		return videoInput{}, err
	}
	w, hgt, err := result.Dimensions()
	if err != nil {
		return videoInput{}, err
	}
	d := result.DurationSeconds()
	if math.IsNaN(d) || d <= 0 {
		return videoInput{}, fmt.Errorf("unknown duration")
	}
	return videoInput{location: h.Location(), width: w, height: hgt, duration: d}, nil
}

type geometry struct {
	width     int
	height    int
	outWidth  int
	outHeight int
	duration  float64
}

// tileGeometry sums widths, takes the tallest height and the longest
// duration, and rounds the output up to even dimensions for yuv420p.
func tileGeometry(inputs []videoInput) geometry {
	var g geometry
	for _, in := range inputs {
		g.width += in.width
		if in.height > g.height {
			g.height = in.height
		}
		if in.duration > g.duration {
			g.duration = in.duration
		}
	}
	g.outWidth = g.width + g.width%2
	g.outHeight = g.height + g.height%2
	return g
}

// filterGraph builds the ffmpeg filter_complex. Inputs 0..n-1 are the videos
// and n..2n-1 their labels. Each video is retimed to fps, held on its last
// frame until the longest input ends, and padded to the common height.
func filterGraph(inputs []videoInput, geo geometry, fps int) string {
	n := len(inputs)
	var b strings.Builder
	for i, in := range inputs {
		hold := geo.duration - in.duration
		fmt.Fprintf(&b, "[%d:v]setpts=PTS-STARTPTS,fps=%d,tpad=stop_mode=clone:stop_duration=%s,pad=%d:%d:0:0:color=black,setsar=1,format=yuv420p[v%d];",
			i, fps, formatSeconds(hold), in.width, geo.height, i)
		fmt.Fprintf(&b, "[v%d][%d:v]overlay=0:0:eof_action=repeat[t%d];", i, n+i, i)
	}
	for i := range inputs {
		fmt.Fprintf(&b, "[t%d]", i)
	}
	if n > 1 {
		fmt.Fprintf(&b, "hstack=inputs=%d[s];", n)
	} else {
		b.WriteString("null[s];")
	}
	fmt.Fprintf(&b, "[s]pad=%d:%d:0:0:color=black[out]", geo.outWidth, geo.outHeight)
	return b.String()
}

func (r *Renderer) ffmpegArgs(inputs []videoInput, labels []string, geo geometry, format videoFormat, output string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in.location)
	}
	for _, label := range labels {
		args = append(args, "-i", label)
	}
	args = append(args,
		"-filter_complex", filterGraph(inputs, geo, r.opts.FPS),
		"-map", "[out]",
		"-an",
		"-r", strconv.Itoa(r.opts.FPS),
		"-t", formatSeconds(geo.duration),
		"-c:v", format.Encoder,
		"-pix_fmt", "yuv420p",
	)
	args = append(args, encoderArgs(format.Encoder)...)
	args = append(args, "-progress", "pipe:1", "-nostats", output)
	return args
}

// parseProgress maps one -progress line to a Progress event. Only out_time_us
// and the final progress=end produce events.
func parseProgress(key, value string, total float64) (Progress, bool) {
	switch key {
	case "out_time_us":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return Progress{}, false
		}
		out := time.Duration(us) * time.Microsecond
		percent := -1.0
		if total > 0 {
			percent = math.Min(100, out.Seconds()/total*100)
		}
		return Progress{Stage: "encoding", Percent: percent, OutTime: out}, true
	case "progress":
		if value == "end" {
			return Progress{Stage: "finalizing", Percent: 100}, true
		}
	}
	return Progress{}, false
}

func writeLabel(path, text string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, LabelImage(text, scale)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatSeconds(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
