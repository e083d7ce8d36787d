package playlist

import (
	"strings"
	"testing"
)

func TestCompareIdentical(t *testing.T) {
	content := Generate(sampleMedia())
	if diffs := Compare(content, content); len(diffs) != 0 {
		t.Fatalf("expected no differences, got %v", diffs)
	}
}

func TestCompareMediaFirstDivergence(t *testing.T) {
	a := sampleMedia()
	b := sampleMedia()
	b.Segments[1].Duration = 5
	b.Segments[2].URI = "other.ts"
	b.Segments = append(b.Segments, Segment{Duration: 2, URI: "extra.ts"})

	diffs := Compare(Generate(a), Generate(b))
	joined := strings.Join(diffs, "\n")
	if !strings.Contains(joined, "segment count: 3 vs 4") {
		t.Fatalf("expected segment count difference, got %v", diffs)
	}
	if !strings.Contains(joined, "segment 1 duration: 6.006 vs 5.0") {
		t.Fatalf("expected first divergence at segment 1, got %v", diffs)
	}
	if strings.Contains(joined, "segment 2") {
		t.Fatalf("expected only the first divergence, got %v", diffs)
	}
}

func TestCompareTypeAndVersion(t *testing.T) {
	master := sampleMaster()
	master.Version = 4
	diffs := Compare(Generate(sampleMedia()), Generate(master))
	joined := strings.Join(diffs, "\n")
	if !strings.Contains(joined, "version: 3 vs 4") || !strings.Contains(joined, "type: media vs master") {
		t.Fatalf("unexpected differences: %v", diffs)
	}
}

func TestCompareMasterVariants(t *testing.T) {
	a := sampleMaster()
	b := sampleMaster()
	b.Variants[0].Bandwidth = 3000000
	diffs := Compare(Generate(a), Generate(b))
	if len(diffs) != 1 || diffs[0] != "variant 0 bandwidth: 2928000 vs 3000000" {
		t.Fatalf("unexpected differences: %v", diffs)
	}
}

func TestCompareHeaderAndParse(t *testing.T) {
	diffs := Compare("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.0,\na.ts\n", "garbage")
	joined := strings.Join(diffs, "\n")
	if !strings.Contains(joined, "header: present vs missing") || !strings.Contains(joined, "second playlist could not be parsed") {
		t.Fatalf("unexpected differences: %v", diffs)
	}
}
