// Package ui holds the lipgloss palette used for colored console output.
//
// [Palette] renders titles, success, error, warning and help text. [NewPlainPalette]
// disables styling, which keeps output stable in tests and when writing to files.
package ui
