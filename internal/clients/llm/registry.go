package llm

import (
	"fmt"
	"os"
	"strings"
)

// ModelInfo is the concrete (endpoint, credential, model-name) triple a
// registry id resolves to.
type ModelInfo struct {
	Endpoint  string
	APIKeyEnv string
	Name      string
}

// FallbackModelID is the cheap/fast model substituted on the final retry
// attempt when the requested model keeps failing.
const FallbackModelID = "gemini-2.0-flash-lite"

const googleEndpoint = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"

// bedrockEndpoint resolves the OpenAI-compatible Bedrock proxy URL. Claude
// models are unusable without it, which is a deployment configuration error.
func bedrockEndpoint() (string, error) {
	url := strings.TrimSpace(os.Getenv("BEDROCK_PROXY_URL"))
	if url == "" {
		return "", fmt.Errorf("missing BEDROCK_PROXY_URL")
	}
	return strings.TrimRight(url, "/") + "/api/v1/chat/completions", nil
}

// ResolveModel maps a registry id to its provider triple. Unknown ids are a
// configuration error and fail fast; they are never retried.
func ResolveModel(id string) (ModelInfo, error) {
	switch id {
	case "gemini-2.5-flash":
		return ModelInfo{Endpoint: googleEndpoint, APIKeyEnv: "GOOGLE_API_KEY", Name: "gemini-2.5-flash-preview-05-20"}, nil
	case "gemini-2.5-pro":
		return ModelInfo{Endpoint: googleEndpoint, APIKeyEnv: "GOOGLE_API_KEY", Name: "gemini-2.5-pro-preview-05-06"}, nil
	case "gemini-2.0-flash":
		return ModelInfo{Endpoint: googleEndpoint, APIKeyEnv: "GOOGLE_API_KEY", Name: "gemini-2.0-flash-001"}, nil
	case "gemini-2.0-flash-lite":
		return ModelInfo{Endpoint: googleEndpoint, APIKeyEnv: "GOOGLE_API_KEY", Name: "gemini-2.0-flash-lite-001"}, nil
	case "claude-4-sonnet":
		ep, err := bedrockEndpoint()
		if err != nil {
			return ModelInfo{}, err
		}
		return ModelInfo{Endpoint: ep, APIKeyEnv: "BEDROCK_API_KEY", Name: "us.anthropic.claude-sonnet-4-20250514-v1:0"}, nil
	case "claude-3.7-sonnet":
		ep, err := bedrockEndpoint()
		if err != nil {
			return ModelInfo{}, err
		}
		return ModelInfo{Endpoint: ep, APIKeyEnv: "BEDROCK_API_KEY", Name: "us.anthropic.claude-3-7-sonnet-20250219-v1:0"}, nil
	case "claude-3.5-haiku":
		ep, err := bedrockEndpoint()
		if err != nil {
			return ModelInfo{}, err
		}
		return ModelInfo{Endpoint: ep, APIKeyEnv: "BEDROCK_API_KEY", Name: "us.anthropic.claude-3-5-haiku-20241022-v1:0"}, nil
	default:
		return ModelInfo{}, fmt.Errorf("unsupported model: %s", id)
	}
}
