package main

// Build-time variables set via ldflags during releases
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)
