package voiceprint

import (
	"slices"
	"testing"
)

func TestDetectorWindow(t *testing.T) {
	tests := []struct {
		name       string
		window     int
		ratio      float32
		feed       []string
		status     SpeakerStatus
		speaker    string
		candidates []string
		confidence float32
	}{
		{
			name: "same segment hash", window: 5, ratio: 0.6,
			feed:   []string{"A3F8", "A3F8", "A3F8", "A3F8", "A3F8"},
			status: StatusSingle, speaker: "voice:A3F8", candidates: []string{"voice:A3F8"}, confidence: 1,
		},
		{
			name: "two alternating takes", window: 4, ratio: 0.6,
			feed:   []string{"AAAA", "BBBB", "AAAA", "BBBB"},
			status: StatusOverlap, speaker: "voice:AAAA", candidates: []string{"voice:AAAA", "voice:BBBB"}, confidence: 1,
		},
		{
			name: "every segment differs", window: 5, ratio: 0.6,
			feed:   []string{"AAAA", "BBBB", "CCCC", "DDDD", "EEEE"},
			status: StatusUnknown, confidence: 0.2,
		},
		{
			name: "window slides to the new speaker", window: 5, ratio: 0.6,
			feed:   []string{"AAAA", "AAAA", "AAAA", "AAAA", "AAAA", "BBBB", "BBBB", "BBBB"},
			status: StatusSingle, speaker: "voice:BBBB", candidates: []string{"voice:BBBB"}, confidence: 0.6,
		},
		{
			name: "strict ratio", window: 3, ratio: 0.8,
			feed:   []string{"AAAA", "AAAA", "BBBB"},
			status: StatusOverlap, speaker: "voice:AAAA", candidates: []string{"voice:AAAA", "voice:BBBB"}, confidence: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(WithWindowSize(tt.window), WithMinRatio(tt.ratio))
			var v *Verdict
			for _, h := range tt.feed {
				v = d.Feed(h)
			}
			if v == nil {
				t.Fatal("no verdict")
			}
			if v.Status != tt.status || v.Speaker != tt.speaker {
				t.Errorf("verdict = %s %q, want %s %q", v.Status, v.Speaker, tt.status, tt.speaker)
			}
			if !slices.Equal(v.Candidates, tt.candidates) {
				t.Errorf("candidates = %v, want %v", v.Candidates, tt.candidates)
			}
			if v.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", v.Confidence, tt.confidence)
			}
		})
	}
}

func TestDetectorNeedsTwoHashes(t *testing.T) {
	d := NewDetector(WithWindowSize(3))
	if v := d.Feed("A3F8"); v != nil {
		t.Errorf("first feed = %+v, want nil", v)
	}
	if v := d.Feed("A3F8"); v == nil || v.Status != StatusSingle {
		t.Errorf("second feed = %+v", v)
	}
	d.Reset()
	if v := d.Feed("BBBB"); v != nil {
		t.Errorf("feed after reset = %+v, want nil", v)
	}
}

func TestSpeakerStatusString(t *testing.T) {
	for status, want := range map[SpeakerStatus]string{
		StatusUnknown:     "unknown",
		StatusSingle:      "single",
		StatusOverlap:     "overlap",
		SpeakerStatus(99): "SpeakerStatus(99)",
	} {
		if got := status.String(); got != want {
			t.Errorf("SpeakerStatus(%d) = %q, want %q", int(status), got, want)
		}
	}
	if got := VoiceLabel("A3F8"); got != "voice:A3F8" {
		t.Errorf("VoiceLabel = %q", got)
	}
}

func TestConsistency(t *testing.T) {
	tests := []struct {
		name   string
		hashes []string
		want   SpeakerStatus
		label  string
	}{
		{"empty", nil, StatusUnknown, ""},
		{"one", []string{"A3"}, StatusSingle, "voice:A3"},
		{"stable", []string{"A3", "A3", "B1", "A3", "A3"}, StatusSingle, "voice:A3"},
		{"two speakers", []string{"A3", "B1", "A3", "B1", "B1", "A3"}, StatusOverlap, "voice:A3"},
		{"noise", []string{"A3", "B1", "C2", "D4", "E5"}, StatusUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consistency(tt.hashes, 0.6)
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s", got.Status, tt.want)
			}
			if got.Speaker != tt.label {
				t.Errorf("speaker = %q, want %q", got.Speaker, tt.label)
			}
		})
	}
}
