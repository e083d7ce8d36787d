// Package textutil sanitizes user-supplied names for use as path segments
// and derives job names from input files.
package textutil
