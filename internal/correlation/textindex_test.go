package correlation

import (
	"math"
	"testing"
)

func newTestIndex(t *testing.T) *documentIndex {
	t.Helper()
	analyzer, err := newTextAnalyzer()
	if err != nil {
		t.Fatalf("newTextAnalyzer: %v", err)
	}
	return newDocumentIndex(analyzer)
}

func TestDocumentIndex_IdenticalTextScoresOne(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "database connection timeout")
	ix.add("a-2", "database connection timeout")

	got, ok := ix.cosine("a-1", "a-2")
	if !ok {
		t.Fatal("expected an opinion for indexed documents")
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("cosine of identical text = %v, want 1", got)
	}
}

func TestDocumentIndex_DisjointTextScoresZero(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "database connection timeout")
	ix.add("a-2", "disk usage critical")

	got, ok := ix.cosine("a-1", "a-2")
	if !ok {
		t.Fatal("expected an opinion for indexed documents")
	}
	if got != 0 {
		t.Errorf("cosine of disjoint text = %v, want 0", got)
	}
}

func TestDocumentIndex_PartialOverlapScoresBetween(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "database connection timeout")
	ix.add("a-2", "database connection refused")

	got, ok := ix.cosine("a-1", "a-2")
	if !ok {
		t.Fatal("expected an opinion for indexed documents")
	}
	if got <= 0 || got >= 1 {
		t.Errorf("cosine of overlapping text = %v, want in (0, 1)", got)
	}
}

func TestDocumentIndex_CaseInsensitive(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "CPU Usage High")
	ix.add("a-2", "cpu usage high")

	got, ok := ix.cosine("a-1", "a-2")
	if !ok {
		t.Fatal("expected an opinion for indexed documents")
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("cosine across case = %v, want 1", got)
	}
}

func TestDocumentIndex_EmptyAndStopwordOnlyTextHasNoOpinion(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "database connection timeout")
	ix.add("a-2", "")
	ix.add("a-3", "the of and")

	if _, ok := ix.cosine("a-1", "a-2"); ok {
		t.Error("expected no opinion against empty text")
	}
	if _, ok := ix.cosine("a-1", "a-3"); ok {
		t.Error("expected no opinion against stopword-only text")
	}
	if _, ok := ix.cosine("a-1", "missing"); ok {
		t.Error("expected no opinion for an unindexed id")
	}
}

func TestDocumentIndex_SharedTermsOutweighRareOnes(t *testing.T) {
	ix := newTestIndex(t)
	ix.add("a-1", "payment service latency spike")
	ix.add("a-2", "payment service latency spike detected")
	ix.add("a-3", "payment gateway unreachable")

	near, ok := ix.cosine("a-1", "a-2")
	if !ok {
		t.Fatal("expected an opinion for a-1/a-2")
	}
	far, ok := ix.cosine("a-1", "a-3")
	if !ok {
		t.Fatal("expected an opinion for a-1/a-3")
	}
	if near <= far {
		t.Errorf("near pair scored %v, far pair %v, want near > far", near, far)
	}
}
