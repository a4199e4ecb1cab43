// Package gemini converts canonical content to and from the Google Gemini
// generateContent wire format and provides a Completer over it.
//
// Gemini has no system role: system content is demoted to a leading
// user-role turn and the demotion is recorded on the conversion plan.
// Function calls arriving without an id get a synthesized one so downstream
// correlation keeps working.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// DefaultBaseURL is the Gemini API origin.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const defaultMaxTokens = 8192

var _ provider.Completer = (*Adapter)(nil)

// Adapter implements provider.Completer for the Google Gemini API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for the Gemini API. The baseURL should have no
// trailing slash; pass DefaultBaseURL for the hosted service.
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{
		Key:    apiKey,
		Header: "x-goog-api-key",
	}
	a.Name = model
	a.MaxTokens = defaultMaxTokens

	// HeaderParser is intentionally not set. The Gemini API does not return
	// rate limit headers as of 2026-08, so the RateLimitedCompleter falls
	// back to proactive throttling only.

	return a
}

// Complete sends a conversation to the Gemini API and returns the reply.
func (a *Adapter) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	wire, _, err := Convert(req, convert.Strict)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("gemini: %w", err)
	}

	wire.GenerationConfig = &GenerationConfig{MaxOutputTokens: a.MaxTokens}
	if a.Temperature != 0 {
		wire.GenerationConfig.Temperature = lo.ToPtr(a.Temperature)
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", a.Name)

	var resp GenerateResponse
	if err := a.PostJSON(ctx, path, wire, &resp); err != nil {
		return request.ModelResponse{}, fmt.Errorf("gemini: %w", err)
	}

	out, err := FromResponse(resp)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("gemini: %w", err)
	}
	if out.ModelName == "" {
		out.ModelName = a.Name
	}

	a.Usage.Add(out.Usage)

	return out, nil
}

// GenerateRequest is the generateContent request body. The model is
// addressed in the URL path, not the body.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []json.RawMessage `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	CachedContent     string            `json:"cachedContent,omitempty"`
}

// Content is one conversation turn. Role is "user" or "model".
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is the flat union of Gemini part variants; exactly one data field is
// set per part.
type Part struct {
	Text                string               `json:"text,omitempty"`
	InlineData          *Blob                `json:"inlineData,omitempty"`
	FileData            *FileData            `json:"fileData,omitempty"`
	FunctionCall        *FunctionCall        `json:"functionCall,omitempty"`
	FunctionResponse    *FunctionResponse    `json:"functionResponse,omitempty"`
	ExecutableCode      *ExecutableCode      `json:"executableCode,omitempty"`
	CodeExecutionResult *CodeExecutionResult `json:"codeExecutionResult,omitempty"`
	ThoughtSignature    string               `json:"thoughtSignature,omitempty"`
}

// Blob is inline base64 data.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FileData references an uploaded or external file by URI.
type FileData struct {
	FileURI     string `json:"fileUri"`
	MIMEType    string `json:"mimeType,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// FunctionCall asks the client to invoke a declared function. The id is
// optional on the wire.
type FunctionCall struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse carries a function result back to the model.
type FunctionResponse struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Response     json.RawMessage `json:"response"`
	WillContinue *bool           `json:"willContinue,omitempty"`
	Scheduling   string          `json:"scheduling,omitempty"`
}

// ExecutableCode is model-generated code for the code execution tool.
type ExecutableCode struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
}

// CodeExecutionResult is the outcome of running ExecutableCode.
type CodeExecutionResult struct {
	Outcome string `json:"outcome,omitempty"`
	Output  string `json:"output,omitempty"`
}

// FunctionDeclaration describes one callable function inside a tool entry.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// GenerationConfig tunes decoding.
type GenerationConfig struct {
	Temperature        *float64 `json:"temperature,omitempty"`
	TopP               *float64 `json:"topP,omitempty"`
	TopK               *int     `json:"topK,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	StopSequences      []string `json:"stopSequences,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// GenerateResponse is the generateContent response body; streaming chunks
// share the same shape.
type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// Candidate is one generated reply.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
	Index        int     `json:"index,omitempty"`
}

// UsageMetadata reports token consumption, with optional per-modality
// breakdowns.
type UsageMetadata struct {
	PromptTokenCount           int                  `json:"promptTokenCount"`
	CachedContentTokenCount    int                  `json:"cachedContentTokenCount,omitempty"`
	CandidatesTokenCount       int                  `json:"candidatesTokenCount,omitempty"`
	ToolUsePromptTokenCount    int                  `json:"toolUsePromptTokenCount,omitempty"`
	ThoughtsTokenCount         int                  `json:"thoughtsTokenCount,omitempty"`
	TotalTokenCount            int                  `json:"totalTokenCount"`
	PromptTokensDetails        []ModalityTokenCount `json:"promptTokensDetails,omitempty"`
	CacheTokensDetails         []ModalityTokenCount `json:"cacheTokensDetails,omitempty"`
	CandidatesTokensDetails    []ModalityTokenCount `json:"candidatesTokensDetails,omitempty"`
	ToolUsePromptTokensDetails []ModalityTokenCount `json:"toolUsePromptTokensDetails,omitempty"`
}

// ModalityTokenCount is the token count for one modality, e.g. "TEXT".
type ModalityTokenCount struct {
	Modality   string `json:"modality"`
	TokenCount int    `json:"tokenCount"`
}
