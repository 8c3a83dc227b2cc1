package cmd

// Version is overridden at build time via
// -ldflags "-X github.com/browserpilot/browserpilot/cmd.Version=...".
var Version = "dev"
