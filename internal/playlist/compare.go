package playlist

import (
	"fmt"
	"strconv"
)

// Compare reports structural differences between two manifests. It focuses on
// the first divergence rather than producing a full diff; an empty slice
// means the playlists are structurally equal.
func Compare(a, b string) []string {
	diffs := []string{}
	scanA, scanB := scanLines(a), scanLines(b)
	if scanA.hasHeader != scanB.hasHeader {
		diffs = append(diffs, fmt.Sprintf("header: %s vs %s", headerLabel(scanA.hasHeader), headerLabel(scanB.hasHeader)))
	}

	pa, errA := Parse(a)
	pb, errB := Parse(b)
	switch {
	case errA != nil && errB != nil:
		return append(diffs, "parse: neither playlist could be parsed")
	case errA != nil:
		return append(diffs, "parse: first playlist could not be parsed: "+errA.Error())
	case errB != nil:
		return append(diffs, "parse: second playlist could not be parsed: "+errB.Error())
	}

	if pa.Version != pb.Version {
		diffs = append(diffs, fmt.Sprintf("version: %d vs %d", pa.Version, pb.Version))
	}
	if pa.Type != pb.Type {
		return append(diffs, fmt.Sprintf("type: %s vs %s", pa.Type, pb.Type))
	}

	if pa.Type == TypeMaster {
		return append(diffs, compareMaster(pa, pb)...)
	}
	return append(diffs, compareMedia(pa, pb)...)
}

func compareMedia(a, b *Playlist) []string {
	var diffs []string
	if a.TargetDuration != b.TargetDuration {
		diffs = append(diffs, fmt.Sprintf("target duration: %d vs %d", a.TargetDuration, b.TargetDuration))
	}
	if len(a.Segments) != len(b.Segments) {
		diffs = append(diffs, fmt.Sprintf("segment count: %d vs %d", len(a.Segments), len(b.Segments)))
	}
	n := min(len(a.Segments), len(b.Segments))
	for i := 0; i < n; i++ {
		sa, sb := a.Segments[i], b.Segments[i]
		if sa.Duration != sb.Duration {
			diffs = append(diffs, fmt.Sprintf("segment %d duration: %s vs %s", i, formatDuration(sa.Duration), formatDuration(sb.Duration)))
		}
		if sa.URI != sb.URI {
			diffs = append(diffs, fmt.Sprintf("segment %d uri: %s vs %s", i, sa.URI, sb.URI))
		}
		if sa != sb {
			break
		}
	}
	return diffs
}

func compareMaster(a, b *Playlist) []string {
	var diffs []string
	if len(a.Variants) != len(b.Variants) {
		diffs = append(diffs, fmt.Sprintf("variant count: %d vs %d", len(a.Variants), len(b.Variants)))
	}
	n := min(len(a.Variants), len(b.Variants))
	for i := 0; i < n; i++ {
		va, vb := a.Variants[i], b.Variants[i]
		if va == vb {
			continue
		}
		if va.URI != vb.URI {
			diffs = append(diffs, fmt.Sprintf("variant %d uri: %s vs %s", i, va.URI, vb.URI))
		}
		if va.Bandwidth != vb.Bandwidth {
			diffs = append(diffs, fmt.Sprintf("variant %d bandwidth: %s vs %s", i, strconv.Itoa(va.Bandwidth), strconv.Itoa(vb.Bandwidth)))
		}
		if va.Resolution != vb.Resolution {
			diffs = append(diffs, fmt.Sprintf("variant %d resolution: %s vs %s", i, va.Resolution, vb.Resolution))
		}
		if va.Codecs != vb.Codecs {
			diffs = append(diffs, fmt.Sprintf("variant %d codecs: %s vs %s", i, va.Codecs, vb.Codecs))
		}
		break
	}
	return diffs
}

func headerLabel(present bool) string {
	if present {
		return "present"
	}
	return "missing"
}
