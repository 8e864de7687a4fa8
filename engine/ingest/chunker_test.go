package ingest

import (
	"reflect"
	"strings"
	"testing"
)

// Four sentences of eight words each: six approximate tokens apiece.
var (
	s1 = "Alpha bravo charlie delta echo foxtrot golf hotel."
	s2 = "India juliet kilo lima mike november oscar papa."
	s3 = "Quebec romeo sierra tango uniform victor whiskey xray."
	s4 = "Yankee zulu alpha bravo charlie delta echo foxtrot."
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"foo   bar", "foo bar"},
		{"foo\t\tbar", "foo bar"},
		{"foo\n\n\n\n\nbar", "foo bar"},
		{"  padded  ", "padded"},
		{"", ""},
		{"   \n\t ", ""},
	}
	for _, tc := range cases {
		if got := normalizeText(tc.in); got != tc.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	text := normalizeText(s1 + " " + s2 + " " + s3)
	got := splitSentences(text)
	want := []string{s1, s2, s3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitSentences = %v, want %v", got, want)
	}
}

func TestSplitSentences_DropsShortFragments(t *testing.T) {
	// "No. 7 is fine." yields the fragment "No." which is under the
	// length floor and must be dropped.
	got := splitSentences("No. The second sentence survives the filter.")
	if len(got) != 1 || !strings.HasPrefix(got[0], "The second") {
		t.Errorf("splitSentences = %v", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	// 8 words * 0.75 = 6; 1 word * 0.75 rounds up to 1.
	if got := estimateTokens(s1); got != 6 {
		t.Errorf("estimateTokens(8 words) = %d, want 6", got)
	}
	if got := estimateTokens("word"); got != 1 {
		t.Errorf("estimateTokens(1 word) = %d, want 1", got)
	}
}

func TestChunk_SingleChunkWithinBudget(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultOverlap)
	text := s1 + " " + s2 + " " + s3
	chunks := c.Chunk(text)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 {
		t.Errorf("chunk_index = %d, want 0", chunks[0].ChunkIndex)
	}
	if chunks[0].Content != normalizeText(text) {
		t.Errorf("content = %q", chunks[0].Content)
	}
	if chunks[0].TokenCount != 18 {
		t.Errorf("token_count = %d, want 18", chunks[0].TokenCount)
	}
	if chunks[0].Metadata["sentence_count"] != 3 {
		t.Errorf("sentence_count = %v, want 3", chunks[0].Metadata["sentence_count"])
	}
}

func TestChunk_OverlapSeedsNextChunk(t *testing.T) {
	// chunkSize 12 fits exactly two sentences; overlap 6 fits exactly
	// one, so every chunk after the first starts with the previous
	// chunk's final sentence.
	c := NewChunker(12, 6)
	chunks := c.Chunk(s1 + " " + s2 + " " + s3 + " " + s4)

	want := []string{
		s1 + " " + s2,
		s2 + " " + s3,
		s3 + " " + s4,
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, chunk := range chunks {
		if chunk.Content != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunk.Content, want[i])
		}
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, chunk.ChunkIndex)
		}
	}
}

func TestChunk_IndexesDense(t *testing.T) {
	c := NewChunker(12, 6)
	chunks := c.Chunk(strings.Repeat(s1+" "+s2+" "+s3+" "+s4+" ", 4))
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d, indexes must be dense", i, chunk.ChunkIndex)
		}
	}
	if len(chunks) < 2 {
		t.Fatal("expected multiple chunks")
	}
}

func TestChunk_OversizedSentenceNotSplit(t *testing.T) {
	long1 := "Aardvark " + strings.Repeat("wanders the dry riverbed ", 10) + "at dusk."
	long2 := "Buffalo " + strings.Repeat("graze the open floodplain ", 10) + "at dawn."

	c := NewChunker(10, 0)
	chunks := c.Chunk(long1 + " " + long2)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.TokenCount <= 10 {
			t.Errorf("chunk %d token_count = %d, expected oversized", i, chunk.TokenCount)
		}
		if strings.Count(chunk.Content, "at d") != 1 {
			t.Errorf("chunk %d appears split or merged: %q", i, chunk.Content)
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultOverlap)
	for _, text := range []string{"", "   ", "\n\n\t"} {
		if got := c.Chunk(text); len(got) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", text, len(got))
		}
	}
}

func TestChunk_ThreeShortSentencesOneChunk(t *testing.T) {
	text := "Aardvarks eat ants daily. Badgers dig deep burrows. Cats sleep all afternoon."
	c := NewChunker(DefaultChunkSize, DefaultOverlap)
	chunks := c.Chunk(text)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 {
		t.Errorf("chunk_index = %d", chunks[0].ChunkIndex)
	}
	if chunks[0].Content != text {
		t.Errorf("content = %q", chunks[0].Content)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewChunker(12, 6)
	text := s1 + " " + s2 + " " + s3 + " " + s4
	first := c.Chunk(text)
	second := c.Chunk(text)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input produced different chunk sequences")
	}
}
