package config

const (
	defaultLibraryDir          = "~/library/tv"
	defaultCatalogueDir        = "~/.local/share/showkeeper/catalogue"
	defaultStateDir            = "~/.local/share/showkeeper"
	defaultLogDir              = "~/.local/share/showkeeper/logs"
	defaultFilenameTemplate    = "{show} - S{season:02}E{episode:02} - {title}"
	defaultSeasonFolderFormat  = "Season {season:02}"
	defaultFFprobeBinary       = "ffprobe"
	defaultParallelDownloads   = 4
	defaultDownloadsPerSecond  = 4
	defaultDownloadTimeout     = 60
	defaultProbeIntervalMillis = 20
	defaultCancelGraceSeconds  = 5
	defaultWatchDebounce       = 30
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultVideoExtensions = []string{".mkv", ".mp4", ".avi", ".m4v", ".mov", ".ts", ".wmv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:   defaultLibraryDir,
			CatalogueDir: defaultCatalogueDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Scan: Scan{
			CountSpecials:       false,
			DateDetection:       true,
			CheckFutureEpisodes: false,
			LookForDuplicates:   true,
			ProposeRenames:      true,
			FilenameTemplate:    defaultFilenameTemplate,
			VideoExtensions:     append([]string(nil), defaultVideoExtensions...),
			FFprobeBinary:       defaultFFprobeBinary,
		},
		Actions: Actions{
			ParallelDownloads:   defaultParallelDownloads,
			DownloadsPerSecond:  defaultDownloadsPerSecond,
			DownloadTimeout:     defaultDownloadTimeout,
			ProbeIntervalMillis: defaultProbeIntervalMillis,
			CancelGraceSeconds:  defaultCancelGraceSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Watch: Watch{
			DebounceSeconds: defaultWatchDebounce,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
