package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const liveConnectPath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Media frames can run large; the default websocket read limit is far too
// small for inline audio.
const liveReadLimit = 64 << 20

// LiveConfig carries the optional setup fields of a live session.
type LiveConfig struct {
	GenerationConfig  *GenerationConfig
	Tools             []json.RawMessage
	SystemInstruction *Content
}

type liveSetupFrame struct {
	Setup liveSetup `json:"setup"`
}

type liveSetup struct {
	Model             string            `json:"model"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []json.RawMessage `json:"tools,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
}

// ClientContent is a clientContent frame body: whole turns appended to the
// session conversation.
type ClientContent struct {
	Turns        []Content `json:"turns"`
	TurnComplete bool      `json:"turnComplete,omitempty"`
}

// ToolResponse is a toolResponse frame body answering a live tool call.
type ToolResponse struct {
	FunctionResponses []FunctionResponse `json:"functionResponses"`
}

// RealtimeInput is a realtimeInput frame body carrying media chunks.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
}

type clientContentFrame struct {
	ClientContent ClientContent `json:"clientContent"`
}

type toolResponseFrame struct {
	ToolResponse ToolResponse `json:"toolResponse"`
}

type realtimeInputFrame struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

// ServerMessage is one frame from the server, discriminated by which field
// is set.
type ServerMessage struct {
	SetupComplete        json.RawMessage           `json:"setupComplete,omitempty"`
	ServerContent        *ServerContent            `json:"serverContent,omitempty"`
	ToolCall             *LiveToolCall             `json:"toolCall,omitempty"`
	ToolCallCancellation *LiveToolCallCancellation `json:"toolCallCancellation,omitempty"`
	UsageMetadata        *UsageMetadata            `json:"usageMetadata,omitempty"`
}

// IsSetupComplete reports whether this frame acknowledges session setup.
func (m ServerMessage) IsSetupComplete() bool { return len(m.SetupComplete) > 0 }

// ServerContent carries incremental model output.
type ServerContent struct {
	ModelTurn          *Content `json:"modelTurn,omitempty"`
	TurnComplete       bool     `json:"turnComplete,omitempty"`
	Interrupted        bool     `json:"interrupted,omitempty"`
	GenerationComplete bool     `json:"generationComplete,omitempty"`
}

// LiveToolCall asks the client to run functions mid-session.
type LiveToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

// LiveToolCallCancellation withdraws earlier live tool calls by id.
type LiveToolCallCancellation struct {
	IDs []string `json:"ids,omitempty"`
}

// LiveSession is an open BidiGenerateContent connection. It is not safe for
// concurrent use; pair one reader with one writer goroutine at most.
type LiveSession struct {
	conn *websocket.Conn
}

// Connect opens a live session: it dials the BidiGenerateContent endpoint,
// sends the setup frame, and waits for the server's setupComplete before
// returning.
func (a *Adapter) Connect(ctx context.Context, cfg LiveConfig) (*LiveSession, error) {
	conn, _, err := a.DialWS(ctx, liveConnectPath)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	conn.SetReadLimit(liveReadLimit)

	setup := liveSetupFrame{Setup: liveSetup{
		Model:             "models/" + a.Name,
		GenerationConfig:  cfg.GenerationConfig,
		Tools:             cfg.Tools,
		SystemInstruction: cfg.SystemInstruction,
	}}
	if err := wsjson.Write(ctx, conn, setup); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini: send setup: %w", err)
	}

	var ack ServerMessage
	if err := wsjson.Read(ctx, conn, &ack); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini: read setup ack: %w", err)
	}
	if !ack.IsSetupComplete() {
		_ = conn.Close(websocket.StatusProtocolError, "unexpected setup ack")
		return nil, fmt.Errorf("gemini: server did not acknowledge setup")
	}

	return &LiveSession{conn: conn}, nil
}

// SendText sends one complete user text turn.
func (s *LiveSession) SendText(ctx context.Context, text string) error {
	return s.SendContent(ctx, ClientContent{
		Turns:        []Content{{Role: "user", Parts: []Part{{Text: text}}}},
		TurnComplete: true,
	})
}

// SendContent appends turns to the session conversation.
func (s *LiveSession) SendContent(ctx context.Context, cc ClientContent) error {
	if err := wsjson.Write(ctx, s.conn, clientContentFrame{ClientContent: cc}); err != nil {
		return fmt.Errorf("gemini: send client content: %w", err)
	}
	return nil
}

// SendToolResponse answers live tool calls.
func (s *LiveSession) SendToolResponse(ctx context.Context, resps ...FunctionResponse) error {
	frame := toolResponseFrame{ToolResponse: ToolResponse{FunctionResponses: resps}}
	if err := wsjson.Write(ctx, s.conn, frame); err != nil {
		return fmt.Errorf("gemini: send tool response: %w", err)
	}
	return nil
}

// SendMedia streams media chunks as realtime input.
func (s *LiveSession) SendMedia(ctx context.Context, chunks ...Blob) error {
	frame := realtimeInputFrame{RealtimeInput: RealtimeInput{MediaChunks: chunks}}
	if err := wsjson.Write(ctx, s.conn, frame); err != nil {
		return fmt.Errorf("gemini: send realtime input: %w", err)
	}
	return nil
}

// Recv reads the next server frame, blocking until one arrives or ctx ends.
func (s *LiveSession) Recv(ctx context.Context) (ServerMessage, error) {
	var msg ServerMessage
	if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("gemini: read server message: %w", err)
	}
	return msg, nil
}

// Close ends the session with a normal closure.
func (s *LiveSession) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "session done")
}
