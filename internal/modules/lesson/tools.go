package lesson

import "github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"

const (
	toolNameGenerate = "generate_lesson_content"
	toolNameAssess   = "assess_lesson_content"
	toolNameComplete = "complete_lesson_generation"
)

// toolKind is the closed set of capabilities the controller may invoke.
// Dispatch goes through this enum; unknown names are rejected with an error
// result fed back to the controller, never silently ignored.
type toolKind int

const (
	toolUnknown toolKind = iota
	toolGenerate
	toolAssess
	toolComplete
)

func toolKindFor(name string) toolKind {
	switch name {
	case toolNameGenerate:
		return toolGenerate
	case toolNameAssess:
		return toolAssess
	case toolNameComplete:
		return toolComplete
	default:
		return toolUnknown
	}
}

type generateArgs struct {
	Prompt    string `json:"prompt"`
	SectionID string `json:"section_id"`
}

type assessArgs struct {
	Prompt string `json:"prompt"`
}

type completeArgs struct {
	Reason string `json:"reason"`
}

func controllerTools() []llm.Tool {
	return []llm.Tool{
		{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        toolNameGenerate,
				Description: "Requests another LLM to generate or revise one section of lesson content as per your instructions.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "The instructions to provide the LLM to generate this section's content.",
						},
						"section_id": map[string]any{
							"type":        "string",
							"description": "The numeric id of the section, establishing its position in the lesson (\"1\", \"2\", ...).",
						},
					},
					"required": []string{"prompt", "section_id"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        toolNameAssess,
				Description: "Requests another LLM to assess the full current lesson content against the criteria you provide. The current lesson content is supplied to it automatically.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "The criteria and constraints the assessor should evaluate the lesson against.",
						},
					},
					"required": []string{"prompt"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        toolNameComplete,
				Description: "Submits the lesson. Use ONLY when every section is finalized to your satisfaction.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"reason": map[string]any{
							"type":        "string",
							"description": "State that the full lesson was approved and how many revision rounds it took.",
						},
					},
					"required": []string{"reason"},
				},
			},
		},
	}
}
