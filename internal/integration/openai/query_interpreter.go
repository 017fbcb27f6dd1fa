// Package openai interprets free-text survey questions with the OpenAI chat API
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commands the interpreter may select
const (
	CommandDailyReport  = "DailyReport"
	CommandBeta         = "BetaDiversity"
	CommandAbundance    = "SpeciesAbundance"
	CommandGeneralQuery = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema_description:"One of DailyReport, BetaDiversity, SpeciesAbundance or GeneralQuery"`
	Date        string `json:"date" jsonschema_description:"Survey date in YYYY-MM-DD format, empty if not applicable"`
	SecondDate  string `json:"second_date" jsonschema_description:"Second survey date in YYYY-MM-DD format for BetaDiversity, empty otherwise"`
	Species     string `json:"species" jsonschema_description:"Species name exactly as it appears in the known species list, empty if not applicable"`
	UserMessage string `json:"user_message" jsonschema_description:"A short message to show back to the user in their original language"`
}

// QueryInterpreter maps a user's question to a survey command.
type QueryInterpreter interface {
	InterpretUserQuery(ctx context.Context, userMessage string, dates, species []string) (*AgentResponse, error)
}

// interpreter implements QueryInterpreter against the chat completions API.
type interpreter struct {
	client openai.Client
	schema interface{}
	model  openai.ChatModel
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// NewQueryInterpreter creates an interpreter using the API key stored in keyEnv.
func NewQueryInterpreter(keyEnv string) (QueryInterpreter, error) {
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", keyEnv)
	}

	return &interpreter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		schema: GenerateSchema[AgentResponse](),
		model:  openai.ChatModelGPT4o,
	}, nil
}

// buildSystemPrompt lists the known dates and species so the agent only picks valid ones.
func buildSystemPrompt(dates, species []string) string {
	return fmt.Sprintf(`You are the assistant of a bird point count survey. You answer questions about
survey completeness and species diversity using the survey database.

Known survey dates: %s
Known species: %s

Behavior:
1. If the user asks about one day (diversity, completeness, how many birds):
   - command_name = "DailyReport", date = that day in YYYY-MM-DD.
2. If the user wants to compare two days:
   - command_name = "BetaDiversity", date and second_date set.
3. If the user asks how often or on how many days a species was seen:
   - command_name = "SpeciesAbundance", species = the matching name from the list.
4. Anything else:
   - command_name = "GeneralQuery" with a brief answer in user_message.

Only use dates and species from the lists; leave a field empty when unsure.
Reply in the user's language. Output strictly in JSON.`,
		strings.Join(dates, ", "), strings.Join(species, ", "))
}

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *interpreter) InterpretUserQuery(ctx context.Context, userMessage string, dates, species []string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing the survey command, its arguments and a user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt(dates, species)),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	return ParseAgentResponse(chat.Choices[0].Message.Content)
}

// ParseAgentResponse decodes the agent's JSON reply.
func ParseAgentResponse(content string) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		slog.Error("Failed to unmarshal OpenAI response", "err", err, "raw", content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	return &agentResp, nil
}
