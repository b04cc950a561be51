package services

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestNarration(t *testing.T, speech *FallbackResolver, assets AssetService) NarrationService {
	t.Helper()
	n, err := NewNarrationService(testLogger(t), speech, assets)
	if err != nil {
		t.Fatalf("NewNarrationService: %v", err)
	}
	return n
}

func TestShouldNarrateBatchOfFive(t *testing.T) {
	speech := NewFallbackResolver(testLogger(t), "speech", time.Second)
	n := newTestNarration(t, speech, &fakeAssets{})

	want := map[int]bool{0: false, 1: true, 2: false, 3: true, 4: false}
	for index, expected := range want {
		if got := n.ShouldNarrate(index, 5); got != expected {
			t.Fatalf("ShouldNarrate(%d, 5) = %v, want %v", index, got, expected)
		}
	}
}

func TestShouldNarrateSmallAndLargeBatches(t *testing.T) {
	speech := NewFallbackResolver(testLogger(t), "speech", time.Second)
	n := newTestNarration(t, speech, &fakeAssets{})

	if n.ShouldNarrate(0, 1) {
		t.Fatalf("single-post batch should get no narration")
	}
	if n.ShouldNarrate(0, 2) || !n.ShouldNarrate(1, 5) {
		t.Fatalf("selection must start at index 1")
	}

	// A batch of 10 gets exactly floor(2*10/5) = 4 narrated posts.
	narrated := 0
	for i := 0; i < 10; i++ {
		if n.ShouldNarrate(i, 10) {
			narrated++
		}
	}
	if narrated != 4 {
		t.Fatalf("batch of 10: expected 4 narrated posts, got %d", narrated)
	}

	if n.ShouldNarrate(-1, 5) || n.ShouldNarrate(5, 5) {
		t.Fatalf("out-of-range indices must never narrate")
	}
}

func TestExplanationTextDeterministicAndBounded(t *testing.T) {
	a := explanationText("photosynthesis", "a glowing green leaf")
	b := explanationText("photosynthesis", "a glowing green leaf")
	if a != b {
		t.Fatalf("same inputs must produce the same narration text")
	}
	if !strings.Contains(a, "photosynthesis") {
		t.Fatalf("narration must mention the topic: %q", a)
	}
	long := explanationText("topic", strings.Repeat("word ", 60))
	if got := len(strings.Fields(long)); got > narrationMaxWords {
		t.Fatalf("narration exceeds %d words: %d", narrationMaxWords, got)
	}
}

func TestNarratePersistsClip(t *testing.T) {
	provider := &fakeProvider{name: "tts", asset: &RawAsset{Kind: "audio", Bytes: []byte("mp3"), Mime: "audio/mpeg"}}
	speech := NewFallbackResolver(testLogger(t), "speech", time.Second, provider)
	assets := &fakeAssets{}
	n := newTestNarration(t, speech, assets)

	url, err := n.Narrate(context.Background(), "gravity", "an apple falling", "caption")
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/audio/") || !strings.HasSuffix(url, ".mp3") {
		t.Fatalf("unexpected clip URL %q", url)
	}

	again, err := n.Narrate(context.Background(), "gravity", "an apple falling", "different caption")
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if again != url {
		t.Fatalf("same topic and context must reuse the same key: %q vs %q", url, again)
	}
}
