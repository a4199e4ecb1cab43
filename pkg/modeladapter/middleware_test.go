package modeladapter_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/provider"
	"github.com/germanamz/lingua/pkg/usage"
)

func TestWithLogging_Success(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	inner := provider.CompleterFunc(func(_ context.Context, _ request.ModelRequest) (request.ModelResponse, error) {
		u := usage.Usage{}
		u.AddInput(usage.Text, 10)
		u.AddOutput(usage.Text, 5)

		return request.ModelResponse{
			Message:   message.NewText(role.Assistant, "hi"),
			ModelName: "test-model",
			Usage:     u,
		}, nil
	})

	c := modeladapter.Chain(inner, modeladapter.WithLogging(log, "testvendor"))

	resp, err := c.Complete(context.Background(), request.New(message.NewText(role.User, "hello")))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Message.TextContent())

	out := buf.String()
	assert.Contains(t, out, "completion started")
	assert.Contains(t, out, "completion finished")
	assert.Contains(t, out, "vendor=testvendor")
	assert.Contains(t, out, "model=test-model")
	assert.Contains(t, out, "input_tokens=10")
}

func TestWithLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	wantErr := errors.New("boom")
	inner := provider.CompleterFunc(func(_ context.Context, _ request.ModelRequest) (request.ModelResponse, error) {
		return request.ModelResponse{}, wantErr
	})

	c := modeladapter.Chain(inner, modeladapter.WithLogging(log, "testvendor"))

	_, err := c.Complete(context.Background(), request.ModelRequest{})
	require.ErrorIs(t, err, wantErr)

	out := buf.String()
	assert.Contains(t, out, "completion failed")
	assert.Contains(t, out, "error=boom")
}

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) modeladapter.Middleware {
		return func(next provider.Completer) provider.Completer {
			return provider.CompleterFunc(func(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
				order = append(order, name)

				return next.Complete(ctx, req)
			})
		}
	}

	inner := provider.CompleterFunc(func(_ context.Context, _ request.ModelRequest) (request.ModelResponse, error) {
		order = append(order, "inner")

		return request.ModelResponse{}, nil
	})

	c := modeladapter.Chain(inner, mw("first"), mw("second"))

	_, err := c.Complete(context.Background(), request.ModelRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "inner"}, order)
}
