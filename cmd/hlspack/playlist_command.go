package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hlspack/internal/playlist"
	"hlspack/internal/services"
)

var errPlaylistsDiffer = errors.New("playlists differ")

func newPlaylistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "playlist",
		Short:       "Parse, validate, repair, and compare m3u8 files",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newPlaylistParseCommand())
	cmd.AddCommand(newPlaylistValidateCommand())
	cmd.AddCommand(newPlaylistRepairCommand())
	cmd.AddCommand(newPlaylistCompareCommand())
	return cmd
}

func readPlaylistText(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", services.Wrap(services.ErrInputNotFound, "playlist", "read", path, err)
	}
	return string(data), nil
}

func newPlaylistParseCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a playlist and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readPlaylistText(args[0])
			if err != nil {
				return err
			}
			p, err := playlist.Parse(content)
			if err != nil {
				return services.Wrap(services.ErrPlaylistParse, "playlist", "parse", args[0], err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, p)
			}
			renderPlaylistSummary(out, p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the parsed playlist as JSON")
	return cmd
}

func renderPlaylistSummary(out io.Writer, p *playlist.Playlist) {
	fmt.Fprintf(out, "Type:    %s\n", p.Type)
	fmt.Fprintf(out, "Version: %d\n", p.Version)
	if p.Type == playlist.TypeMaster {
		rows := make([][]string, 0, len(p.Variants))
		for _, v := range p.Variants {
			rows = append(rows, []string{v.URI, v.Resolution, strconv.Itoa(v.Bandwidth), v.Codecs, v.AudioGroup, v.SubtitleGroup})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			Title:   "Variants",
			Headers: []string{"URI", "Resolution", "Bandwidth", "Codecs", "Audio", "Subtitles"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
		}))
		tracks := append(append([]playlist.MediaTrack(nil), p.AudioTracks...), p.Subtitles...)
		if len(tracks) > 0 {
			rows := make([][]string, 0, len(tracks))
			for _, t := range tracks {
				rows = append(rows, []string{t.Type, t.GroupID, t.Name, t.Language, yesNo(t.Default), t.URI})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				Title:   "Media",
				Headers: []string{"Type", "Group", "Name", "Language", "Default", "URI"},
				Rows:    rows,
			}))
		}
		return
	}
	fmt.Fprintf(out, "Target:   %ds\n", p.ComputedTargetDuration())
	fmt.Fprintf(out, "Sequence: %d\n", p.MediaSequence)
	fmt.Fprintf(out, "Segments: %d (%s total, longest %s)\n", len(p.Segments), formatSeconds(p.TotalDuration()), formatSeconds(p.MaxSegmentDuration()))
	fmt.Fprintf(out, "Complete: %s\n", yesNo(p.IsComplete()))
}

func newPlaylistValidateCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a playlist against HLS rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readPlaylistText(args[0])
			if err != nil {
				return err
			}
			result := playlist.Validate(content)
			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				renderFindings(out, result)
			}
			if !result.Valid {
				return services.Wrap(services.ErrPlaylistValidation, "playlist", "validate", args[0],
					fmt.Errorf("%d error(s)", len(result.Errors)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print findings as JSON")
	return cmd
}

func renderFindings(out io.Writer, result playlist.ValidationResult) {
	var rows [][]string
	for _, group := range [][]playlist.Finding{result.Errors, result.Warnings, result.Info} {
		for _, f := range group {
			line := "-"
			if f.Line > 0 {
				line = strconv.Itoa(f.Line)
			}
			rows = append(rows, []string{string(f.Severity), f.Code, line, f.Message})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(tableSpec{
			Headers: []string{"Severity", "Code", "Line", "Message"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
		}))
	}
	status := "valid"
	if !result.Valid {
		status = "invalid"
	}
	fmt.Fprintf(out, "Playlist %s: %d error(s), %d warning(s), %d info\n", status, len(result.Errors), len(result.Warnings), len(result.Info))
}

func newPlaylistRepairCommand() *cobra.Command {
	var write bool
	var output string
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Fix missing version, missing target duration, and negative media sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readPlaylistText(args[0])
			if err != nil {
				return err
			}
			result := playlist.ValidateAndRepair(content)
			target := strings.TrimSpace(output)
			if write {
				if args[0] == "-" {
					return services.Wrap(services.ErrConfiguration, "playlist", "repair", "--write needs a file argument", nil)
				}
				target = args[0]
			}
			stderr := cmd.ErrOrStderr()
			if len(result.Applied) > 0 {
				fmt.Fprintf(stderr, "Applied: %s\n", strings.Join(result.Applied, ", "))
			} else {
				fmt.Fprintln(stderr, "No repairable findings")
			}
			if target == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), result.Content)
				return err
			}
			if err := playlist.WriteFile(target, result.Content); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Wrote %s\n", target)
			if !result.After.Valid {
				return services.Wrap(services.ErrPlaylistValidation, "playlist", "repair", target,
					fmt.Errorf("%d error(s) remain", len(result.After.Errors)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the input file in place")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the repaired playlist to this path")
	cmd.MarkFlagsMutuallyExclusive("write", "output")
	return cmd
}

func newPlaylistCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Report the first structural differences between two playlists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readPlaylistText(args[0])
			if err != nil {
				return err
			}
			b, err := readPlaylistText(args[1])
			if err != nil {
				return err
			}
			diffs := playlist.Compare(a, b)
			out := cmd.OutOrStdout()
			if len(diffs) == 0 {
				fmt.Fprintln(out, "Playlists are structurally equal")
				return nil
			}
			for _, d := range diffs {
				fmt.Fprintln(out, d)
			}
			return errPlaylistsDiffer
		},
	}
}
