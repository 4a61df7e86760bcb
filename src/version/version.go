package version

// Version is the confsync release version. Overridden at build time via
// -ldflags "-X confsync/src/version.Version=...".
var Version = "0.3.0-dev"
