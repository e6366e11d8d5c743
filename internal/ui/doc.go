// Package ui styles CLI output.
//
// [Palette] wraps [lipgloss] styles for titles, success and failure lines, warnings and
// muted progress text. [Styles] is the shared instance used by the soundpy commands.
//
// [RenderTable] lays out search hits and stored playlists as rounded go-pretty tables.
package ui
