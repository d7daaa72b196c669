package media

import "testing"

func pcm16Mono(samples []int16, sampleRate int) *AudioFrame {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return NewAudioFrame(data, AudioFormat{
		SampleRate:    sampleRate,
		Channels:      1,
		BitsPerSample: 16,
		Format:        AudioFormatPCM,
	})
}

func TestResampleAudioFrameNoopWhenRateMatches(t *testing.T) {
	frame := pcm16Mono([]int16{1, 2, 3}, 16000)
	got, err := ResampleAudioFrame(frame, 16000)
	if err != nil {
		t.Fatalf("ResampleAudioFrame: %v", err)
	}
	if got != frame {
		t.Fatalf("expected the same frame back for a matching rate")
	}
}

func TestResampleAudioFrameDownsamples(t *testing.T) {
	samples := make([]int16, 960) // 20ms at 48kHz
	for i := range samples {
		samples[i] = int16(i % 100)
	}
	frame := pcm16Mono(samples, 48000)

	got, err := ResampleAudioFrame(frame, 16000)
	if err != nil {
		t.Fatalf("ResampleAudioFrame: %v", err)
	}
	if got.Format.SampleRate != 16000 {
		t.Fatalf("expected resampled rate 16000, got %d", got.Format.SampleRate)
	}
	wantSamples := len(samples) / 3
	if got.SampleCount() != wantSamples {
		t.Fatalf("expected %d samples, got %d", wantSamples, got.SampleCount())
	}
}

func TestResampleAudioFrameRejectsUnsupportedFormat(t *testing.T) {
	frame := NewMonoFloat32Frame([]float32{0.1, 0.2, 0.3}, 48000)
	if _, err := ResampleAudioFrame(frame, 16000); err == nil {
		t.Fatal("expected an error resampling a non-PCM16 frame")
	}
}

func TestAudioFrameSampleCountAndEmpty(t *testing.T) {
	frame := pcm16Mono([]int16{1, 2, 3, 4}, 16000)
	if frame.SampleCount() != 4 {
		t.Fatalf("expected 4 samples, got %d", frame.SampleCount())
	}
	if frame.IsEmpty() {
		t.Fatal("frame with data should not be empty")
	}

	empty := NewAudioFrame(nil, AudioFormat{SampleRate: 16000, Channels: 1, BitsPerSample: 16, Format: AudioFormatPCM})
	if !empty.IsEmpty() {
		t.Fatal("frame with no data should be empty")
	}
}

func TestAudioFrameClone(t *testing.T) {
	frame := pcm16Mono([]int16{1, 2, 3}, 16000)
	frame.Metadata["participant"] = "caller-1"

	clone := frame.Clone()
	clone.Data[0] = 0xFF
	clone.Metadata["participant"] = "caller-2"

	if frame.Data[0] == clone.Data[0] {
		t.Fatal("clone should not share the underlying data slice")
	}
	if frame.Metadata["participant"] != "caller-1" {
		t.Fatal("clone should not share the metadata map")
	}
}
