package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type geminiChat struct {
	apiKey string
	model  string
	http   *http.Client
}

func newGeminiChat(apiKey, model string, client *http.Client) *geminiChat {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &geminiChat{apiKey: apiKey, model: model, http: client}
}

type geminiPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFuncCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFuncResp `json:"functionResponse,omitempty"`
}

type geminiFuncCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiFuncResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []struct {
		FunctionDeclarations []FunctionSchema `json:"functionDeclarations"`
	} `json:"tools,omitempty"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *geminiChat) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body := geminiRequest{}
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case "assistant":
			c := geminiContent{Role: "model"}
			if m.Content != "" {
				c.Parts = append(c.Parts, geminiPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				c.Parts = append(c.Parts, geminiPart{FunctionCall: &geminiFuncCall{Name: tc.Name, Args: tc.Arguments}})
			}
			body.Contents = append(body.Contents, c)
		case "tool":
			body.Contents = append(body.Contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFuncResp{
					Name:     m.Name,
					Response: map[string]any{"result": m.Content},
				}}},
			})
		default:
			body.Contents = append(body.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}
	if len(req.Functions) > 0 {
		body.Tools = append(body.Tools, struct {
			FunctionDeclarations []FunctionSchema `json:"functionDeclarations"`
		}{FunctionDeclarations: req.Functions})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("gemini marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("gemini call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("gemini read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, fmt.Errorf("gemini error %d: %s", resp.StatusCode, string(data))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ChatResponse{}, fmt.Errorf("gemini decode: %w", err)
	}
	if parsed.Error != nil {
		return ChatResponse{}, fmt.Errorf("gemini: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return ChatResponse{}, fmt.Errorf("gemini: empty response")
	}

	var out ChatResponse
	for i, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d", i),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}
