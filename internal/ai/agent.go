package ai

import (
	"context"
	"fmt"
	"time"

	"go-erp-backend/internal/config"
	"go-erp-backend/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxToolRounds bounds how many tool round trips one question may take.
const maxToolRounds = 4

const systemPrompt = `You are an ERP assistant for a small retail shop. Today is %s.

RULES:
1. If the user asks about PRICE, COST, STOCK or DETAILS of a product, call 'check_inventory'
   (or 'find_product_by_barcode' when a barcode is given) and answer from the returned JSON.
   Do NOT say you cannot get the price.
2. If the user asks for sales, revenue or profit, call 'get_sales_report'.
3. You are read-only. If asked to change data, explain that changes must be made in the application.`

// Agent answers questions about the shop by letting a Gemini model call
// read-only tools backed by the services.
type Agent struct {
	client *genai.Client
	model  string
	tools  *Toolbox
	now    func() time.Time
}

// NewAgent connects to Gemini. It returns (nil, nil) when no API key is
// configured so callers can treat the assistant as disabled.
func NewAgent(ctx context.Context, cfg config.AssistantConfig, tools *Toolbox) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Agent{client: client, model: cfg.Model, tools: tools, now: time.Now}, nil
}

func (a *Agent) Close() error {
	return a.client.Close()
}

// Ask runs one question through the model, executing tool calls until the
// model produces text.
func (a *Agent) Ask(ctx context.Context, message string) (string, error) {
	log := logger.FromContext(ctx)

	model := a.client.GenerativeModel(a.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(systemPrompt, a.now().Format(time.DateOnly)))},
	}
	model.Tools = []*genai.Tool{{FunctionDeclarations: Declarations()}}

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("asking model: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			log.Info("Assistant tool call", zap.String("tool", call.Name), zap.Any("args", call.Args))
			replies = append(replies, a.tools.Execute(ctx, call))
		}
		resp, err = session.SendMessage(ctx, replies...)
		if err != nil {
			return "", fmt.Errorf("sending tool results: %w", err)
		}
	}

	return textOf(resp), nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not produce an answer."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
