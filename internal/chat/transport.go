package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/logging"
	"github.com/cyberforge/cyberforge/internal/stream"
)

// Transport opens a token stream for a conversation.
type Transport interface {
	Stream(ctx context.Context, history []Message) (TokenStream, error)
}

// TokenStream yields token events until io.EOF.
type TokenStream interface {
	Recv() (stream.TokenEvent, error)
	Close() error
}

// BackendTransport streams through the backend's /api/assistant/chat.
type BackendTransport struct {
	client *api.Client
	logger *logging.Logger
}

// NewBackendTransport creates a transport on top of client.
func NewBackendTransport(client *api.Client) *BackendTransport {
	return &BackendTransport{
		client: client,
		logger: logging.Default().WithComponent("chat"),
	}
}

func (t *BackendTransport) Stream(ctx context.Context, history []Message) (TokenStream, error) {
	body, err := t.client.Assistant.ChatStream(ctx, toWire(history))
	if err != nil {
		return nil, err
	}
	return &frameStream{body: body, r: stream.NewReader(body), logger: t.logger}, nil
}

type frameStream struct {
	body   io.ReadCloser
	r      *stream.Reader
	logger *logging.Logger
}

// Recv skips frames that fail to parse.
func (s *frameStream) Recv() (stream.TokenEvent, error) {
	for {
		frame, err := s.r.Next()
		if err != nil {
			return stream.TokenEvent{}, err
		}
		ev, err := stream.ParseTokenEvent(frame)
		if err != nil {
			s.logger.Stream("skipping frame", "error", err)
			continue
		}
		return ev, nil
	}
}

func (s *frameStream) Close() error {
	return s.body.Close()
}

// OpenAITransport talks to an OpenAI-compatible endpoint directly.
type OpenAITransport struct {
	client *openai.Client
	model  string
}

// NewOpenAITransport creates a direct transport. An empty baseURL uses the
// OpenAI default; an empty model uses GPT-4o mini.
func NewOpenAITransport(apiKey, baseURL, model string) *OpenAITransport {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITransport{client: openai.NewClientWithConfig(cfg), model: model}
}

func (t *OpenAITransport) Stream(ctx context.Context, history []Message) (TokenStream, error) {
	req := openai.ChatCompletionRequest{
		Model:    t.model,
		Messages: toOpenAI(history),
		Stream:   true,
	}
	s, err := t.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, openAIError(ctx, err)
	}
	return &openAIStream{ctx: ctx, s: s, model: t.model}, nil
}

type openAIStream struct {
	ctx   context.Context
	s     *openai.ChatCompletionStream
	model string
}

func (s *openAIStream) Recv() (stream.TokenEvent, error) {
	resp, err := s.s.Recv()
	if errors.Is(err, io.EOF) {
		return stream.TokenEvent{}, io.EOF
	}
	if err != nil {
		return stream.TokenEvent{}, openAIError(s.ctx, err)
	}

	ev := stream.TokenEvent{Model: resp.Model}
	if len(resp.Choices) > 0 {
		ev.Token = resp.Choices[0].Delta.Content
		ev.Done = resp.Choices[0].FinishReason != ""
		if ev.Done && ev.Token != "" {
			// Deliver the last token; the next Recv reports EOF.
			ev.Done = false
		}
	}
	return ev, nil
}

func (s *openAIStream) Close() error {
	return s.s.Close()
}

// openAIError maps go-openai failures onto the same error surface as the
// backend transport.
func openAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &api.APIError{
			Status:  apiErr.HTTPStatusCode,
			Code:    api.CodeHTTP,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &api.APIError{
			Status:  reqErr.HTTPStatusCode,
			Code:    api.CodeHTTP,
			Message: fmt.Sprintf("Request failed with status %d", reqErr.HTTPStatusCode),
			Err:     err,
		}
	}
	return &api.APIError{Code: api.CodeNetwork, Message: err.Error(), Err: err}
}
