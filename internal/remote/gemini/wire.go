// Package gemini implements the remote session client against the Gemini
// Live bidirectional websocket protocol.
package gemini

// Wire types for the BidiGenerateContent websocket protocol. Only the
// fields this client uses are modeled.

type clientMessage struct {
	Setup         *setupPayload  `json:"setup,omitempty"`
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
}

type setupPayload struct {
	Model                    string              `json:"model"`
	GenerationConfig         *generationConfig   `json:"generationConfig,omitempty"`
	SystemInstruction        *content            `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *transcriptionSetup `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *transcriptionSetup `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type transcriptionSetup struct{}

type realtimeInput struct {
	MediaChunks []blob `json:"mediaChunks,omitempty"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text,omitempty"`
}
