package voiceprint

// Detector classifies a sliding window of voice hashes.
//
// On each Feed it counts the distinct hashes in the window:
//
//   - one hash covering at least minRatio of the window → StatusSingle
//   - the top two together covering minRatio → StatusOverlap
//   - otherwise → StatusUnknown
//
// Confidence is the share of the window covered by the candidates.
type Detector struct {
	window []string // circular buffer of recent hashes
	pos    int      // next write position
	filled int      // slots in use, up to len(window)

	minRatio float32
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithWindowSize sets the sliding window size (default 5).
func WithWindowSize(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.window = make([]string, n)
		}
	}
}

// WithMinRatio sets the dominance ratio for StatusSingle (default 0.6).
// Values outside (0, 1] are ignored.
func WithMinRatio(r float32) DetectorOption {
	return func(d *Detector) {
		if r > 0 && r <= 1 {
			d.minRatio = r
		}
	}
}

// NewDetector creates a Detector with the given options.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		window:   make([]string, 5),
		minRatio: 0.6,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed adds a hash to the window and returns the current verdict, or nil
// while fewer than two hashes have been seen.
func (d *Detector) Feed(hash string) *Verdict {
	d.window[d.pos] = hash
	d.pos = (d.pos + 1) % len(d.window)
	if d.filled < len(d.window) {
		d.filled++
	}
	if d.filled < 2 {
		return nil
	}

	counts := make(map[string]int, 4)
	order := make([]string, 0, 4)
	for i := range d.filled {
		h := d.window[(d.pos-d.filled+i+len(d.window))%len(d.window)]
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}

	// ties go to the hash seen first in the window
	var top1, top2 string
	var n1, n2 int
	for _, h := range order {
		switch c := counts[h]; {
		case c > n1:
			top2, n2 = top1, n1
			top1, n1 = h, c
		case c > n2:
			top2, n2 = h, c
		}
	}

	total := float32(d.filled)
	if r := float32(n1) / total; r >= d.minRatio {
		return &Verdict{
			Status:     StatusSingle,
			Speaker:    VoiceLabel(top1),
			Candidates: []string{VoiceLabel(top1)},
			Confidence: r,
		}
	}
	if n2 > 0 {
		if r := float32(n1+n2) / total; r >= d.minRatio {
			return &Verdict{
				Status:     StatusOverlap,
				Speaker:    VoiceLabel(top1),
				Candidates: []string{VoiceLabel(top1), VoiceLabel(top2)},
				Confidence: r,
			}
		}
	}
	return &Verdict{
		Status:     StatusUnknown,
		Confidence: float32(n1) / total,
	}
}

// Reset clears the window.
func (d *Detector) Reset() {
	d.pos = 0
	d.filled = 0
	clear(d.window)
}

// Consistency classifies a whole sequence of hashes at once, using a
// window as long as the sequence. Fewer than two hashes yield
// StatusUnknown (or StatusSingle for exactly one).
func Consistency(hashes []string, minRatio float32) Verdict {
	switch len(hashes) {
	case 0:
		return Verdict{Status: StatusUnknown}
	case 1:
		return Verdict{
			Status:     StatusSingle,
			Speaker:    VoiceLabel(hashes[0]),
			Candidates: []string{VoiceLabel(hashes[0])},
			Confidence: 1,
		}
	}
	d := NewDetector(WithWindowSize(len(hashes)), WithMinRatio(minRatio))
	var v *Verdict
	for _, h := range hashes {
		v = d.Feed(h)
	}
	return *v
}
