// Package cli provides shared helpers for the voxdeck command-line
// tool: request-file loading (YAML/JSON), human-readable formatting
// (durations, byte sizes, token counts), and the themed frame renderer
// that watch-style commands redraw on every refresh.
package cli
