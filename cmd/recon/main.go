package main

import "github.com/anstrom/recon/cmd/cli"

// @title Recon API
// @version 1.0
// @description Single-target port state and host availability assessment
//
// @contact.name Recon Support
// @contact.url https://github.com/anstrom/recon
//
// @license.name MIT
// @license.url https://github.com/anstrom/recon/blob/main/LICENSE
//
// @host localhost:8080
// @BasePath /api/v1

// Build information, set by ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
