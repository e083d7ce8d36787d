package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hlspack/internal/language"
	"hlspack/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <input>",
		Short: "Inspect the streams of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := requireArg(args, "input")
			if err != nil {
				return err
			}
			result, err := ctx.probe(cmd, input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "File:     %s\n", input)
			fmt.Fprintf(out, "Format:   %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "Duration: %s\n", formatSeconds(result.DurationSeconds()))
			fmt.Fprintf(out, "Size:     %s\n", formatBytes(result.SizeBytes()))
			fmt.Fprintln(out, renderTable(tableSpec{
				Title:   "Streams",
				Headers: []string{"#", "Type", "Codec", "Details", "Language", "Flags"},
				Rows:    streamRows(result.Streams),
				Aligns:  []columnAlignment{alignRight},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the ffprobe result as JSON")
	return cmd
}

func streamRows(streams []ffprobe.Stream) [][]string {
	rows := make([][]string, 0, len(streams))
	for _, s := range streams {
		lang := "-"
		if raw := s.Tag("language"); raw != "" {
			lang = language.Tag(raw)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			s.CodecType,
			s.CodecName,
			streamDetails(s),
			lang,
			streamFlags(s),
		})
	}
	return rows
}

func streamDetails(s ffprobe.Stream) string {
	switch s.CodecType {
	case "video":
		detail := fmt.Sprintf("%dx%d", s.Width, s.Height)
		if fps := s.FrameRate(); fps > 0 {
			detail += fmt.Sprintf(" @ %.3g fps", fps)
		}
		return detail
	case "audio":
		detail := fmt.Sprintf("%d ch", s.Channels)
		if rate := s.SampleRateHz(); rate > 0 {
			detail += fmt.Sprintf(", %d Hz", rate)
		}
		return detail
	default:
		return s.Tag("title")
	}
}

func streamFlags(s ffprobe.Stream) string {
	var flags []string
	if s.IsDefault() {
		flags = append(flags, "default")
	}
	if s.IsForced() {
		flags = append(flags, "forced")
	}
	return strings.Join(flags, ",")
}
