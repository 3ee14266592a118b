// Package pcm provides the mono audio buffer passed between pipeline stages.
//
// A Buffer is a fixed-rate sequence of float64 samples nominally in [-1, 1].
// Transforms never modify a Buffer in place; they return a new one. Helpers
// convert to and from 16-bit little-endian PCM (L16), the layout used by
// decoders and by the voiceprint front-end.
//
// Example usage:
//
//	buf := pcm.New(samples, 44100)
//	fmt.Println(buf.Duration(), buf.RMS())
//
//	// Force the output of a transform back to the source length
//	out = out.FitLength(buf.Len())
package pcm
