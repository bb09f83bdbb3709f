package common

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// extractionSystemPrompt instructs the model to emit relation triples as a
// JSON object.  Korean clause text goes in verbatim; the response schema is
// fixed so parsing stays mechanical.
const extractionSystemPrompt = `당신은 보험 약관 분석기입니다. 주어진 약관 조문에서 보장 관계를 추출하여 JSON으로만 응답하세요.
형식: {"relations":[{"subject":"...","predicate":"...","object":"...","confidence":0.0}]}
predicate는 보장한다, 제외한다, 지급한다, 요구한다 중 하나를 사용하세요.`

type openaiExtractor struct {
	client *openai.Client
	model  string
	logger logging.Logger
}

func newOpenAIExtractor(cfg config.ExtractionConfig, log logging.Logger) Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiExtractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: log.Named("openai"),
	}
}

func (e *openaiExtractor) Name() string { return "openai" }

func (e *openaiExtractor) Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return ExtractionResult{}, errors.Wrap(err, errors.ErrCodeExternalCallFailed,
			"openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return ExtractionResult{}, errors.New(errors.ErrCodeExternalCallFailed,
			"openai returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed struct {
		Relations []policy.Relation `json:"relations"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		e.logger.Warn("unparseable model response",
			logging.String("document_id", req.DocumentID), logging.Err(err))
		return ExtractionResult{}, errors.Wrap(err, errors.ErrCodeExternalCallFailed,
			"parse model response")
	}

	return ExtractionResult{Relations: parsed.Relations, Model: resp.Model}, nil
}
