package mock

import (
	"time"

	"voiceagent/media"
	"voiceagent/plugins"
	"voiceagent/services/llm"
	"voiceagent/services/stt"
	"voiceagent/services/tts"
	"voiceagent/services/vad"
)

// MockPlugin implements the Plugin interface for testing
type MockPlugin struct {
	*plugins.BasePlugin
}

// NewMockPlugin creates a new mock plugin
func NewMockPlugin() *MockPlugin {
	return &MockPlugin{
		BasePlugin: plugins.NewBasePlugin("mock", "1.0.0", "Mock services for testing"),
	}
}

// Register registers mock services with the plugin registry
func (p *MockPlugin) Register(registry *plugins.Registry) error {
	// Register mock STT service
	registry.RegisterSTT("mock-stt", func() stt.STT {
		return NewMockSTT()
	})

	// Register mock STT with custom responses
	registry.RegisterSTT("mock-stt-custom", func() stt.STT {
		return NewMockSTT("Custom response 1", "Custom response 2", "Custom response 3")
	})

	// Register mock TTS service
	registry.RegisterTTS("mock-tts", func() tts.TTS {
		return NewMockTTS()
	})

	// Register mock LLM service
	registry.RegisterLLM("mock-llm", func() llm.LLM {
		return NewMockLLM()
	})

	// Register mock LLM with custom responses
	registry.RegisterLLM("mock-llm-friendly", func() llm.LLM {
		return NewMockLLM(
			"Namaste! I'm here to help you get a gold loan sorted quickly.",
			"That's useful, tell me more about the gold you'd like to pledge.",
			"Happy to walk you through the loan terms, ask away!",
			"Good question — let me check that against today's rates.",
		)
	})

	// Register mock VAD service
	registry.RegisterVAD("mock-vad", func() vad.VAD {
		return NewMockVAD()
	})

	// Register mock Silero VAD
	registry.RegisterVAD("mock-silero", func() vad.VAD {
		return NewMockSileroVAD()
	})

	return nil
}

// RegisterMockPlugin registers the mock plugin with the global registry
func RegisterMockPlugin() error {
	plugin := NewMockPlugin()
	return plugins.RegisterPlugin(plugin)
}

// Register the delegate function for auto-discovery
func init() {
	plugins.RegisterPluginDelegate("mock", func(apiKey string) error {
		return RegisterMockPlugin() // Mock doesn't need API key
	})
}

// Helper functions for creating pre-configured mock services

// CreateMockSTTWithResponses creates a mock STT with custom responses
func CreateMockSTTWithResponses(responses ...string) *MockSTT {
	return NewMockSTT(responses...)
}

// CreateMockLLMWithResponses creates a mock LLM with custom responses  
func CreateMockLLMWithResponses(responses ...string) *MockLLM {
	return NewMockLLM(responses...)
}

// CreateMockTTSWithFormat creates a mock TTS with custom audio format
func CreateMockTTSWithFormat(sampleRate, channels, bitsPerSample int) *MockTTS {
	mockTTS := NewMockTTS()
	mockTTS.SetAudioFormat(media.AudioFormat{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: bitsPerSample,
		Format:        media.AudioFormatPCM,
	})
	return mockTTS
}

// CreateMockVADWithPattern creates a mock VAD with custom speech pattern
func CreateMockVADWithPattern(pattern []bool) *MockVAD {
	mockVAD := NewMockVAD()
	mockVAD.SetSpeechPattern(pattern)
	return mockVAD
}

// TestScenarios provides pre-configured test scenarios

// TestScenario represents a complete test scenario
type TestScenario struct {
	Name        string
	Description string
	STT         *MockSTT
	LLM         *MockLLM
	TTS         *MockTTS
	VAD         *MockVAD
}

// GetTestScenarios returns predefined test scenarios
func GetTestScenarios() []TestScenario {
	return []TestScenario{
		{
			Name:        "basic-conversation",
			Description: "Basic gold-loan eligibility conversation with standard responses",
			STT:         NewMockSTT("I have 20 grams of gold", "mera naam Priya hai", "Thank you"),
			LLM:         NewMockLLM("With 20 grams of 22k gold you're eligible for a loan of about 1 lakh rupees.", "Thanks Priya, let's check your eligibility.", "You're welcome!"),
			TTS:         NewMockTTS(),
			VAD:         NewMockVAD(),
		},
		{
			Name:        "noisy-environment",
			Description: "Gold-loan conversation in a noisy branch with low STT confidence",
			STT: func() *MockSTT {
				stt := NewMockSTT("mera... static... sona hai", "Can you... hear me?", "...do lakh chahiye")
				stt.SetConfidence(0.6) // Lower confidence
				return stt
			}(),
			LLM: NewMockLLM("I'm having trouble hearing you clearly. Could you repeat the gold weight?", "Got it, two lakh rupees — let me check eligibility."),
			TTS: NewMockTTS(),
			VAD: func() *MockVAD {
				vad := NewMockVAD()
				vad.SetNoiseLevel(0.3) // Higher noise level
				return vad
			}(),
		},
		{
			Name:        "quick-responses",
			Description: "Fast-paced yes/no confirmations during a loan application",
			STT: func() *MockSTT {
				stt := NewMockSTT("haan", "nahi", "Maybe", "Okay", "theek hai")
				stt.SetDelay(50 * time.Millisecond) // Fast recognition
				return stt
			}(),
			LLM: func() *MockLLM {
				llm := NewMockLLM("Noted.", "Understood!", "Makes sense!", "Alright!", "Branch visit confirmed!")
				llm.SetDelay(100 * time.Millisecond) // Fast responses
				return llm
			}(),
			TTS: func() *MockTTS {
				tts := NewMockTTS()
				tts.SetDelay(50 * time.Millisecond) // Fast synthesis
				return tts
			}(),
			VAD: NewMockVAD(),
		},
		{
			Name:        "long-form-content",
			Description: "Longer responses explaining loan terms and comparisons",
			STT: NewMockSTT(
				"Can you explain how the interest rate works for a gold loan?",
				"That's helpful, tell me more about the purity factor",
				"What happens if I can't repay on time?",
			),
			LLM: NewMockLLM(
				"Gold loan interest is tiered by the loan amount and tenure, typically quoted as an annual percentage that accrues monthly against your outstanding balance.",
				"The purity factor adjusts how much of your gold's weight counts toward the loan value — 24k gold gets a higher factor than 18k or 22k jewellery with alloy mixed in.",
				"If a repayment is missed we'll reach out before any action on the pledged gold; persistent default can eventually lead to auction of the collateral per the loan agreement.",
			),
			TTS: NewMockTTS(),
			VAD: NewMockVAD(),
		},
	}
}

// ApplyTestScenario applies a test scenario to the global plugin registry
func ApplyTestScenario(scenario TestScenario) error {
	registry := plugins.GlobalRegistry()

	// Register scenario-specific services
	registry.RegisterSTT("scenario-stt", func() stt.STT {
		return scenario.STT
	})

	registry.RegisterLLM("scenario-llm", func() llm.LLM {
		return scenario.LLM
	})

	registry.RegisterTTS("scenario-tts", func() tts.TTS {
		return scenario.TTS
	})

	registry.RegisterVAD("scenario-vad", func() vad.VAD {
		return scenario.VAD
	})

	return nil
}