package composite

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"arena/internal/services"
)

// videoFormat is one "ext:encoder" entry of the output preference list.
type videoFormat struct {
	Ext     string
	Encoder string
}

type encoderSet map[string]struct{}

// listEncoders is swapped in tests.
var listEncoders = func(ctx context.Context, ffmpeg string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -encoders: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// parseEncoders extracts video encoder names from `ffmpeg -encoders` output.
// Encoder rows start with a six character capability column whose first
// letter is the media type.
func parseEncoders(output string) encoderSet {
	set := make(encoderSet)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 || fields[0][0] != 'V' || fields[1] == "=" {
			continue
		}
		if strings.Trim(fields[0], "VASFXBD.") != "" {
			continue
		}
		set[fields[1]] = struct{}{}
	}
	return set
}

// selectFormat returns the first preference whose encoder is available.
func selectFormat(preferences []string, available encoderSet) (videoFormat, error) {
	for _, pref := range preferences {
		ext, encoder, ok := strings.Cut(strings.TrimSpace(pref), ":")
		if !ok || ext == "" || encoder == "" {
			continue
		}
		if _, found := available[encoder]; found {
			return videoFormat{Ext: ext, Encoder: encoder}, nil
		}
	}
	return videoFormat{}, fmt.Errorf("%w: none of %s is available", ErrUnsupportedFormat, strings.Join(preferences, ", "))
}

// encoderArgs returns quality settings for known encoders.
func encoderArgs(encoder string) []string {
	switch encoder {
	case "libx264":
		return []string{"-preset", "veryfast", "-crf", "20", "-movflags", "+faststart"}
	case "libvpx-vp9":
		return []string{"-b:v", "0", "-crf", "32", "-row-mt", "1"}
	case "libvpx":
		return []string{"-b:v", "2M", "-quality", "good"}
	default:
		return nil
	}
}

// videoFormat picks the output format, probing ffmpeg once per renderer.
// Callers hold r.mu.
func (r *Renderer) videoFormat(ctx context.Context) (videoFormat, error) {
	if r.encoders == nil {
		output, err := listEncoders(ctx, r.opts.FFmpeg)
		if err != nil {
			return videoFormat{}, services.Wrap(services.ErrExternalTool, "composite", "list encoders", "", err)
		}
		set := parseEncoders(string(output))
		r.encoders = &set
	}
	return selectFormat(r.opts.VideoFormats, *r.encoders)
}
