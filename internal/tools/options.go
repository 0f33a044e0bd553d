package tools

import "time"

// Options tune the tool surface. Zero values are filled in by
// DefaultOptions; callers usually adjust one or two fields.
type Options struct {
	// WorkDir is the directory inside the sandbox that commands run from.
	WorkDir string

	// OutputLimit caps file content and command output, in characters.
	OutputLimit int

	// ListLimit caps the number of paths returned by a file listing.
	ListLimit int

	// ManifestPath is where to look for the project manifest when detecting
	// a dev server start command.
	ManifestPath string

	// DevServerPort is the port the started server is expected to bind.
	DevServerPort int

	// DevServerDelay is how long to wait after launching the server before
	// reporting it as starting.
	DevServerDelay time.Duration

	// DevServerLog is where the detached server's output is redirected.
	DevServerLog string
}

// DefaultOptions returns the standard tool settings.
func DefaultOptions() Options {
	return Options{
		WorkDir:        "/app",
		OutputLimit:    10000,
		ListLimit:      100,
		ManifestPath:   "package.json",
		DevServerPort:  3000,
		DevServerDelay: 3 * time.Second,
		DevServerLog:   "/tmp/drover-dev-server.log",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WorkDir == "" {
		o.WorkDir = d.WorkDir
	}
	if o.OutputLimit == 0 {
		o.OutputLimit = d.OutputLimit
	}
	if o.ListLimit == 0 {
		o.ListLimit = d.ListLimit
	}
	if o.ManifestPath == "" {
		o.ManifestPath = d.ManifestPath
	}
	if o.DevServerPort == 0 {
		o.DevServerPort = d.DevServerPort
	}
	if o.DevServerDelay == 0 {
		o.DevServerDelay = d.DevServerDelay
	}
	if o.DevServerLog == "" {
		o.DevServerLog = d.DevServerLog
	}
	return o
}
