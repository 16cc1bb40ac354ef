// Package cli provides the extpoint command-line interface.
//
// # Overview
//
// The `extpoint` tool builds an extension registry the same way a host
// program does, from the environment plus command line overrides, and
// reports what it found.
//
// # Commands
//
// modules: List discovered modules
//
//	extpoint modules --dir ./plugins --json
//
// points: List declared extension points
//
//	extpoint points
//
// extensions: List extensions in global order
//
//	extpoint extensions --point shapes.Shape --order ./ordering.yaml
//
// create: Instantiate the first usable extension, or all of them
//
//	extpoint create --point shapes.Shape --class circle
//	extpoint create --point shapes.Shape --all
//
// cache: Inspect or clear the metadata cache
//
//	extpoint cache status
//	extpoint cache clear
//
// watch: Invalidate the cache when module files change
//
//	extpoint watch --debounce 1s
//
// serve: Serve the admin API, optionally reloading on changes
//
//	extpoint serve --addr 127.0.0.1:9090 --watch
//
// # Configuration
//
// Every registry command accepts --dir, --order, --no-cache and
// --log-level. Anything not given on the command line comes from the
// EXTPOINT_* environment variables read by pkg/config.
//
// # Related Packages
//
//   - pkg/plugins: Registry construction and extension lookup
//   - pkg/admin: HTTP handlers used by serve
package cli
