package correlation

import "testing"

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"High latency", "high latency"},
		{"High latency on /checkout", "high latency on checkout"},
		{"Disk 85% full", "disk N full"},
		{"Disk 92% full", "disk N full"},
		{"HTTP 502 from upstream", "http N from upstream"},
		{"  spaced   out  ", "spaced out"},
		{"error-rate>0.05", "error rate N N"},
		{"", ""},
		{"12345", "N"},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFingerprint_DigitsMasked(t *testing.T) {
	a := Fingerprint("api", "api01", "HTTP 502 from upstream")
	b := Fingerprint("api", "api01", "HTTP 503 from upstream")
	if a != b {
		t.Errorf("digit variants should share a fingerprint: %s vs %s", a, b)
	}
}

func TestFingerprint_DistinguishesOrigin(t *testing.T) {
	base := Fingerprint("api", "api01", "High latency")
	if Fingerprint("api", "api02", "High latency") == base {
		t.Errorf("different host should change fingerprint")
	}
	if Fingerprint("web", "api01", "High latency") == base {
		t.Errorf("different service should change fingerprint")
	}
	if Fingerprint("api", "api01", "Low latency") == base {
		t.Errorf("different title should change fingerprint")
	}
}

func TestFingerprint_Stable(t *testing.T) {
	if Fingerprint("api", "api01", "High latency") != Fingerprint("api", "api01", "high LATENCY!") {
		t.Errorf("case and punctuation should not affect fingerprint")
	}
	if len(Fingerprint("a", "b", "c")) != 16 {
		t.Errorf("fingerprint should be 16 hex chars")
	}
}
