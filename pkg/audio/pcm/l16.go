package pcm

// DecodeL16 converts interleaved 16-bit little-endian PCM to mono samples,
// averaging the channels.
func DecodeL16(b []byte, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	frame := 2 * channels
	n := len(b) / frame
	out := make([]float64, n)
	for i := range n {
		var sum float64
		for c := range channels {
			j := i*frame + c*2
			s := int16(b[j]) | int16(b[j+1])<<8
			sum += float64(s) / 32768.0
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// EncodeL16 converts samples to mono 16-bit little-endian PCM with clipping.
func EncodeL16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := ToInt(s, 16)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// ToInt converts a sample to a signed integer of the given bit depth.
func ToInt(s float64, bitDepth int) int {
	full := float64(int(1) << (bitDepth - 1))
	v := s * full
	if v > full-1 {
		return int(full - 1)
	}
	if v < -full {
		return int(-full)
	}
	return int(v)
}

// FromInt converts a signed integer sample of the given bit depth to float.
func FromInt(v, bitDepth int) float64 {
	return float64(v) / float64(int(1)<<(bitDepth-1))
}
