package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

// ErrUnavailable marks a provider that is present but not usable (missing
// key, empty config). It belongs to the ErrProvider taxonomy.
var ErrUnavailable = fmt.Errorf("%w: provider not configured", errs.ErrProvider)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat-shaped provider request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IProvider is a vendor capability: chat generation plus text embedding.
// Embedding dimensionality is fixed per provider/model instance.
type IProvider interface {
	Name() string
	Generate(ctx context.Context, mdl string, msgs []Message) (string, error)
	Embed(ctx context.Context, mdl string, text string) ([]float32, error)
}

// IGenerator maps (system instructions, retrieved context, history) to a
// reply string.
type IGenerator interface {
	Generate(ctx context.Context, system string, contextText string, history []model.SessionMessage) (string, error)
}

// IEmbedder maps text to a fixed-dimension vector.
type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, mdl string) IGenerator {
	return &generator{provider: p, model: mdl}
}

func (g *generator) Generate(ctx context.Context, system string, contextText string, history []model.SessionMessage) (string, error) {
	msgs := BuildMessages(system, contextText, history)
	res, err := g.provider.Generate(ctx, g.model, msgs)
	if err != nil {
		return "", wrapProviderErr(err)
	}
	return res, nil
}

// BuildMessages composes the provider request: the fixed system
// instructions with the retrieved context appended, followed by the full
// session history in order.
func BuildMessages(system string, contextText string, history []model.SessionMessage) []Message {
	content := system
	if contextText != "" {
		content += "\n\nContext:\n" + contextText
	}
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: content})
	for _, item := range history {
		msgs = append(msgs, Message{Role: item.Role, Content: item.Content})
	}
	return msgs
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, mdl string) IEmbedder {
	return &embedder{provider: p, model: mdl}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.provider.Embed(ctx, e.model, text)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return res, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

func wrapProviderErr(err error) error {
	if errors.Is(err, errs.ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %v", errs.ErrProvider, err)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
