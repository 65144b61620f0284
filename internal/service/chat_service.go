package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xxxsen/repoinsight/internal/ai"
	"github.com/xxxsen/repoinsight/internal/chunker"
	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
	"github.com/xxxsen/repoinsight/internal/repodata"
	"github.com/xxxsen/repoinsight/internal/retriever"
	"github.com/xxxsen/repoinsight/internal/session"
	"github.com/xxxsen/repoinsight/internal/vectorstore"
)

const systemPrompt = `You are an AI assistant for a software repository QA task. ` +
	`Use the pieces of context to answer the question at the end. ` +
	`If you don't know the answer, just say that you don't know, don't try to make up an answer. ` +
	`Use three sentences maximum and keep the answer as concise as possible.`

const (
	defaultChunkSize = 350
	defaultTopK      = 4
)

type ChatServiceConfig struct {
	ChunkSize int
	TopK      int
}

// ChatService sequences the retrieval-augmented pipeline for one request:
// session bootstrap, lazy repository ingestion, question embedding, top-k
// retrieval, prompt composition, generation, history pairing.
type ChatService struct {
	sessions  session.Store
	vectors   vectorstore.Store
	retriever *retriever.Retriever
	embedder  ai.IEmbedder
	generator ai.IGenerator
	loader    repodata.Loader
	cfg       ChatServiceConfig
	populate  singleflight.Group
}

func NewChatService(
	sessions session.Store,
	vectors vectorstore.Store,
	ret *retriever.Retriever,
	embedder ai.IEmbedder,
	generator ai.IGenerator,
	loader repodata.Loader,
	cfg ChatServiceConfig,
) *ChatService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &ChatService{
		sessions:  sessions,
		vectors:   vectors,
		retriever: ret,
		embedder:  embedder,
		generator: generator,
		loader:    loader,
		cfg:       cfg,
	}
}

// Process runs the pipeline and never propagates failures: any step error
// is logged and converted into an empty ChatResponse so one bad request
// cannot kill the worker loop. Partial progress (a question already
// appended before a downstream failure) is not rolled back.
func (s *ChatService) Process(ctx context.Context, req model.ChatRequest) model.ChatResponse {
	resp, err := s.process(ctx, req)
	if err != nil {
		logutil.GetLogger(ctx).Error("chat request failed",
			zap.String("user_id", req.UserID),
			zap.String("repo_url", req.RepoURL),
			zap.Error(err),
		)
		return model.ChatResponse{ChatHistory: []model.QARound{}}
	}
	return resp
}

func (s *ChatService) process(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", req.UserID))

	exists, err := s.sessions.Exists(ctx, req.UserID)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		if err := s.sessions.Create(ctx, req.UserID); err != nil {
			return model.ChatResponse{}, fmt.Errorf("create session: %w", err)
		}
		logger.Info("new session created")
	}

	collection := vectorstore.DeriveCollectionKey(req.RepoURL)
	if err := s.ensurePopulated(ctx, collection, req.RepoURL); err != nil {
		return model.ChatResponse{}, fmt.Errorf("populate collection %q: %w", collection, err)
	}

	queryEmbedding, err := s.embedder.Embed(ctx, req.Question)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("embed question: %w", err)
	}

	fragments, err := s.retriever.TopK(ctx, collection, queryEmbedding, s.cfg.TopK)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("retrieve context: %w", err)
	}

	// The question joins the history only after retrieval succeeded, so a
	// failed retrieval leaves the session untouched.
	if err := s.sessions.Append(ctx, req.UserID, model.SessionMessage{Role: model.RoleUser, Content: req.Question}); err != nil {
		return model.ChatResponse{}, fmt.Errorf("append question: %w", err)
	}
	history, err := s.sessions.History(ctx, req.UserID)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("read history: %w", err)
	}

	answer, err := s.generator.Generate(ctx, systemPrompt, strings.Join(fragments, " "), history)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("generate answer: %w", err)
	}
	if err := s.sessions.Append(ctx, req.UserID, model.SessionMessage{Role: model.RoleAssistant, Content: answer}); err != nil {
		return model.ChatResponse{}, fmt.Errorf("append answer: %w", err)
	}

	history = append(history, model.SessionMessage{Role: model.RoleAssistant, Content: answer})
	return model.ChatResponse{ChatHistory: pairHistory(history)}, nil
}

// ensurePopulated ingests the repository into its collection at most once.
// singleflight collapses concurrent requests for the same unpopulated
// repository into a single writer within this process; across processes the
// store's create-if-absent keeps a double create benign.
func (s *ChatService) ensurePopulated(ctx context.Context, collection string, repoURL string) error {
	_, err, _ := s.populate.Do(collection, func() (interface{}, error) {
		ok, err := s.vectors.Has(ctx, collection)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		logger := logutil.GetLogger(ctx).With(zap.String("collection", collection))
		payload, err := s.loader.Load(ctx, repoURL)
		if err != nil {
			return nil, fmt.Errorf("load repository payload: %w", err)
		}
		chunks, err := chunker.Split(ctx, payload, s.cfg.ChunkSize)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			return nil, fmt.Errorf("%w: repository payload produced no chunks", errs.ErrEmptyCorpus)
		}
		texts := make([]string, 0, len(chunks))
		vectors := make([][]float32, 0, len(chunks))
		for _, chunk := range chunks {
			embedding, err := s.embedder.Embed(ctx, chunk.Text)
			if err != nil {
				return nil, fmt.Errorf("embed chunk %d: %w", chunk.Sequence, err)
			}
			texts = append(texts, chunk.Text)
			vectors = append(vectors, embedding)
		}
		if err := s.vectors.SaveBatch(ctx, collection, texts, vectors); err != nil {
			// Another process may have beaten us to the first write.
			if errors.Is(err, errs.ErrDimensionMismatch) {
				return nil, err
			}
			return nil, fmt.Errorf("save chunks: %w", err)
		}
		logger.Info("repository ingested", zap.Int("chunks", len(chunks)))
		return nil, nil
	})
	return err
}

// pairHistory folds the ordered session log into (question, answer) rounds
// by pairing each user message with the assistant message that follows it.
func pairHistory(history []model.SessionMessage) []model.QARound {
	rounds := make([]model.QARound, 0, len(history)/2)
	for i := 0; i+1 < len(history); i += 2 {
		if history[i].Role != model.RoleUser || history[i+1].Role != model.RoleAssistant {
			continue
		}
		rounds = append(rounds, model.QARound{
			Question: history[i].Content,
			Answer:   history[i+1].Content,
		})
	}
	return rounds
}
