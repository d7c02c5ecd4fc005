package correlation

import (
	"testing"
	"time"
)

func TestPredict_NoHistoryIsZero(t *testing.T) {
	lib := newPatternLibrary(time.Hour, 0.1, 5, true)

	got := lib.predict("api", 10*time.Minute, storeEpoch)
	if got.Service != "api" {
		t.Errorf("service = %q, want api", got.Service)
	}
	if got.HorizonSeconds != 600 {
		t.Errorf("horizon seconds = %d, want 600", got.HorizonSeconds)
	}
	if got.PredictionScore != 0 {
		t.Errorf("score = %v, want 0", got.PredictionScore)
	}
	if len(got.ContributingPatterns) != 0 {
		t.Errorf("patterns = %v, want none", got.ContributingPatterns)
	}
	if !got.GeneratedAt.Equal(storeEpoch) {
		t.Errorf("generated at = %v, want %v", got.GeneratedAt, storeEpoch)
	}
}

func TestPredict_RatioOfClusterFollowedOccurrences(t *testing.T) {
	lib := newPatternLibrary(time.Hour, 0.1, 5, true)
	key := testKey("api", "api01", "High latency")

	for i := 0; i < 4; i++ {
		lib.observe(key, storeEpoch.Add(time.Duration(i)*time.Minute))
	}
	// Two of the four occurrences ended up in clusters a minute later.
	lib.recordClusterHit(key, storeEpoch, storeEpoch.Add(time.Minute))
	lib.recordClusterHit(key, storeEpoch.Add(time.Minute), storeEpoch.Add(2*time.Minute))

	got := lib.predict("api", 10*time.Minute, storeEpoch.Add(5*time.Minute))
	if got.PredictionScore != 0.5 {
		t.Fatalf("score = %v, want 0.5", got.PredictionScore)
	}
	if len(got.ContributingPatterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(got.ContributingPatterns))
	}
	p := got.ContributingPatterns[0]
	if p.Occurrences != 4 || p.ClusterFollow != 2 || p.Ratio != 0.5 {
		t.Errorf("pattern = %+v, want 4 occurrences, 2 followed, ratio 0.5", p)
	}
	if p.TitleTemplate != "high latency" {
		t.Errorf("title template = %q, want normalized title", p.TitleTemplate)
	}
}

func TestPredict_HorizonBoundsClusterFollow(t *testing.T) {
	lib := newPatternLibrary(time.Hour, 0.1, 5, true)
	key := testKey("api", "api01", "High latency")

	lib.observe(key, storeEpoch)
	lib.observe(key, storeEpoch.Add(time.Minute))
	lib.recordClusterHit(key, storeEpoch, storeEpoch.Add(30*time.Second))
	lib.recordClusterHit(key, storeEpoch.Add(time.Minute), storeEpoch.Add(time.Minute+2*time.Hour))

	now := storeEpoch.Add(2*time.Minute)
	if got := lib.predict("api", time.Minute, now); got.PredictionScore != 0.5 {
		t.Errorf("score with 1m horizon = %v, want 0.5", got.PredictionScore)
	}
	if got := lib.predict("api", 3*time.Hour, now); got.PredictionScore != 1 {
		t.Errorf("score with 3h horizon = %v, want 1", got.PredictionScore)
	}
}

func TestPredict_OnlyRecentlyActiveSignaturesContribute(t *testing.T) {
	lib := newPatternLibrary(time.Hour, 0.1, 5, true)
	stale := testKey("api", "api01", "Old failure")
	active := testKey("api", "api02", "Fresh failure")

	lib.observe(stale, storeEpoch)
	lib.recordClusterHit(stale, storeEpoch, storeEpoch.Add(time.Minute))
	lib.observe(active, storeEpoch.Add(90*time.Minute))

	got := lib.predict("api", 10*time.Minute, storeEpoch.Add(2*time.Hour))
	if len(got.ContributingPatterns) != 1 {
		t.Fatalf("patterns = %d, want only the active signature", len(got.ContributingPatterns))
	}
	if got.ContributingPatterns[0].Host != "api02" {
		t.Errorf("contributing host = %q, want api02", got.ContributingPatterns[0].Host)
	}
	if got.PredictionScore != 0 {
		t.Errorf("score = %v, want 0 (active signature never clustered)", got.PredictionScore)
	}
}

func TestPredict_IgnoresOtherServices(t *testing.T) {
	lib := newPatternLibrary(time.Hour, 0.1, 5, true)
	lib.observe(testKey("web", "web01", "Timeout"), storeEpoch)

	got := lib.predict("api", 10*time.Minute, storeEpoch.Add(time.Minute))
	if got.PredictionScore != 0 || len(got.ContributingPatterns) != 0 {
		t.Errorf("prediction = %+v, want empty for a service with no history", got)
	}
}

func TestPredict_SortsPatternsByRatio(t *testing.T) {
	lib := newPatternLibrary(time.Hour, 0.1, 5, true)
	weak := testKey("api", "api01", "Minor blip")
	strong := testKey("api", "api02", "Always clusters")

	lib.observe(weak, storeEpoch)
	lib.observe(weak, storeEpoch.Add(time.Second))
	lib.recordClusterHit(weak, storeEpoch, storeEpoch.Add(time.Minute))
	lib.observe(strong, storeEpoch.Add(2*time.Second))
	lib.recordClusterHit(strong, storeEpoch.Add(2*time.Second), storeEpoch.Add(time.Minute))

	got := lib.predict("api", 10*time.Minute, storeEpoch.Add(time.Minute))
	if len(got.ContributingPatterns) != 2 {
		t.Fatalf("patterns = %d, want 2", len(got.ContributingPatterns))
	}
	if got.ContributingPatterns[0].Host != "api02" || got.ContributingPatterns[1].Host != "api01" {
		t.Errorf("order = [%s %s], want [api02 api01]",
			got.ContributingPatterns[0].Host, got.ContributingPatterns[1].Host)
	}
}
