package config

const (
	defaultConfigPath            = "~/.config/arena/config.toml"
	defaultWorkDir               = "~/.cache/arena/work"
	defaultLogDir                = "~/.local/share/arena/logs"
	defaultOutputDir             = "~/arena-exports"
	defaultMediaKind             = "video"
	defaultDuplicatePolicy       = "first"
	defaultSuggestThreshold      = 0.8
	defaultCompositeFPS          = 30
	defaultImageFormat           = "png"
	defaultArtifactSuffix        = "_comparison"
	defaultReportName            = "results.xlsx"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	maxVariants                  = 8
	minVariants                  = 2
	variantColorHexDigits        = 6
	defaultVariantColorFallback  = "#888888"
	defaultVideoFormatPreference = "mp4:libx264"
)

// TieWinner is the winner recorded for a tied vote. No variant may use it as
// an id.
const TieWinner = "TIE"

var defaultVideoFormats = []string{defaultVideoFormatPreference, "webm:libvpx-vp9", "webm:libvpx"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
		},
		Session: Session{
			MediaKind: defaultMediaKind,
		},
		Matching: Matching{
			DuplicatePolicy:  defaultDuplicatePolicy,
			SuggestThreshold: defaultSuggestThreshold,
		},
		Composite: Composite{
			FPS:          defaultCompositeFPS,
			VideoFormats: append([]string(nil), defaultVideoFormats...),
			ImageFormat:  defaultImageFormat,
		},
		Export: Export{
			ArtifactSuffix: defaultArtifactSuffix,
			ReportName:     defaultReportName,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
