// Package playlist implements the HLS manifest protocol layer.
//
// It parses raw M3U8 text into a structured Playlist, generates master,
// media, and subtitle playlists from that model, validates manifest text
// against syntax, structure, compatibility, and performance rules, repairs a
// fixed whitelist of findings, and compares two manifests structurally.
//
// Apart from the ReadFile and WriteFile conveniences the package performs no
// I/O and never spawns processes.
package playlist
