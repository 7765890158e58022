package http

// RouterConfig contains all dependencies of the HTTP router.
type RouterConfig struct {
	Works WorksService

	// Optional. Task routes are only registered when set.
	TaskClient TaskQueue

	// Optional. Maintenance routes are only registered when set.
	Progress       ProgressReader
	RunMaintenance func()

	Database Pinger

	// CoversDir is served under MediaPath.
	CoversDir string
	MediaPath string

	Version string
}
