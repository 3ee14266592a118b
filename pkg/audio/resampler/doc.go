// Package resampler converts mono buffers between sample rates using a
// pure Go high-quality resampler (no CGO/FFI dependencies).
//
// The output length is always round(len * dst / src), so callers can rely
// on durations surviving a round trip.
//
// Example usage:
//
//	out, err := resampler.Resample(buf, 44100)
//	if err != nil {
//	    return err
//	}
package resampler
