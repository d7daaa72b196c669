package media

import (
	"fmt"
	"math"
	"time"
)

// AudioFormat represents audio format information
type AudioFormat struct {
	SampleRate   int
	Channels     int
	BitsPerSample int
	Format       AudioFormatType
}

type AudioFormatType int

const (
	AudioFormatPCM AudioFormatType = iota
	AudioFormatFloat32
	AudioFormatFloat64
	AudioFormatOgg
	AudioFormatMP3
	AudioFormatWAV
)

// AudioFrame represents a frame of audio data
type AudioFrame struct {
	Data      []byte
	Format    AudioFormat
	Timestamp time.Time
	Duration  time.Duration
	Metadata  map[string]interface{}
}

// NewAudioFrame creates a new audio frame
func NewAudioFrame(data []byte, format AudioFormat) *AudioFrame {
	return &AudioFrame{
		Data:      data,
		Format:    format,
		Timestamp: time.Now(),
		Duration:  calculateDuration(len(data), format),
		Metadata:  make(map[string]interface{}),
	}
}

// Clone creates a deep copy of the audio frame
func (af *AudioFrame) Clone() *AudioFrame {
	data := make([]byte, len(af.Data))
	copy(data, af.Data)
	
	metadata := make(map[string]interface{})
	for k, v := range af.Metadata {
		metadata[k] = v
	}
	
	return &AudioFrame{
		Data:      data,
		Format:    af.Format,
		Timestamp: af.Timestamp,
		Duration:  af.Duration,
		Metadata:  metadata,
	}
}

// SampleCount returns the number of audio samples in the frame
func (af *AudioFrame) SampleCount() int {
	bytesPerSample := af.Format.BitsPerSample / 8
	return len(af.Data) / (bytesPerSample * af.Format.Channels)
}

// IsEmpty returns true if the frame contains no audio data
func (af *AudioFrame) IsEmpty() bool {
	return len(af.Data) == 0
}

// String returns a string representation of the audio frame
func (af *AudioFrame) String() string {
	return fmt.Sprintf("AudioFrame{samples=%d, format=%+v, duration=%v}",
		af.SampleCount(), af.Format, af.Duration)
}

// Float32Samples decodes the frame as mono float32 samples in [-1, 1],
// downmixing interleaved channels by averaging. Panics are avoided by
// truncating to whole-sample boundaries.
func (af *AudioFrame) Float32Samples() []float32 {
	switch af.Format.Format {
	case AudioFormatFloat32:
		n := len(af.Data) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := uint32(af.Data[i*4]) | uint32(af.Data[i*4+1])<<8 |
				uint32(af.Data[i*4+2])<<16 | uint32(af.Data[i*4+3])<<24
			out[i] = math.Float32frombits(bits)
		}
		return downmix(out, af.Format.Channels)
	case AudioFormatPCM:
		if af.Format.BitsPerSample != 16 {
			return nil
		}
		n := len(af.Data) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(uint16(af.Data[i*2]) | uint16(af.Data[i*2+1])<<8)
			out[i] = float32(v) / 32768.0
		}
		return downmix(out, af.Format.Channels)
	default:
		return nil
	}
}

func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// NewMonoFloat32Frame builds an AudioFrame from mono float32 samples,
// encoding them as AudioFormatFloat32 PCM bytes.
func NewMonoFloat32Frame(samples []float32, sampleRate int) *AudioFrame {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		bits := math.Float32bits(s)
		data[i*4] = byte(bits)
		data[i*4+1] = byte(bits >> 8)
		data[i*4+2] = byte(bits >> 16)
		data[i*4+3] = byte(bits >> 24)
	}
	return NewAudioFrame(data, AudioFormat{
		SampleRate:    sampleRate,
		Channels:      1,
		BitsPerSample: 32,
		Format:        AudioFormatFloat32,
	})
}

// ResampleAudioFrame resamples a mono 16-bit PCM frame to targetRate
// using linear interpolation. Frames already at targetRate, or calls
// with a non-positive targetRate, return the frame unchanged; frames in
// any other format are rejected with an error.
func ResampleAudioFrame(frame *AudioFrame, targetRate int) (*AudioFrame, error) {
	if frame.Format.SampleRate == targetRate || targetRate <= 0 {
		return frame, nil
	}
	if frame.Format.Format != AudioFormatPCM || frame.Format.BitsPerSample != 16 || frame.Format.Channels != 1 {
		return nil, fmt.Errorf("media: resample: unsupported format %+v", frame.Format)
	}

	srcRate := frame.Format.SampleRate
	srcSamples := len(frame.Data) / 2
	if srcSamples == 0 {
		return frame, nil
	}
	dstSamples := int(int64(srcSamples) * int64(targetRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil, fmt.Errorf("media: resample: frame too short to resample to %dHz", targetRate)
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(targetRate)
	for i := 0; i < dstSamples; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(uint16(frame.Data[srcIdx*2]) | uint16(frame.Data[srcIdx*2+1])<<8)
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(uint16(frame.Data[(srcIdx+1)*2]) | uint16(frame.Data[(srcIdx+1)*2+1])<<8)
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}

	format := frame.Format
	format.SampleRate = targetRate
	return NewAudioFrame(out, format), nil
}

// calculateDuration calculates the duration of audio data
func calculateDuration(dataLen int, format AudioFormat) time.Duration {
	if format.SampleRate == 0 {
		return 0
	}
	
	bytesPerSample := format.BitsPerSample / 8
	samples := dataLen / (bytesPerSample * format.Channels)
	seconds := float64(samples) / float64(format.SampleRate)
	
	return time.Duration(seconds * float64(time.Second))
}

// Common audio formats
var (
	// Standard 16-bit PCM at 48kHz mono
	AudioFormat48kHz16BitMono = AudioFormat{
		SampleRate:    48000,
		Channels:      1,
		BitsPerSample: 16,
		Format:        AudioFormatPCM,
	}
	
	// Standard 16-bit PCM at 48kHz stereo
	AudioFormat48kHz16BitStereo = AudioFormat{
		SampleRate:    48000,
		Channels:      2,
		BitsPerSample: 16,
		Format:        AudioFormatPCM,
	}
	
	// Standard 16-bit PCM at 16kHz mono (common for speech)
	AudioFormat16kHz16BitMono = AudioFormat{
		SampleRate:    16000,
		Channels:      1,
		BitsPerSample: 16,
		Format:        AudioFormatPCM,
	}
)