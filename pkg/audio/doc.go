// Package audio is an umbrella for the audio sub-packages:
//
//   - pcm: mono float sample buffers and the L16 conversions
//   - codec: WAV, MP3, FLAC and Ogg Vorbis decoding, WAV encoding at 16 or 24 bits
//   - resampler: sample-rate conversion
//   - fbank: mel filterbank, log-mel and MFCC features
//
// Example usage:
//
//	import (
//	    "github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
//	    "github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
//	)
//
//	buf, err := codec.Decode("take1.wav")
//	if err != nil {
//	    return err
//	}
//	buf, err = resampler.Resample(buf, 44100)
package audio
