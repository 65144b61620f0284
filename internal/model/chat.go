package model

import (
	"fmt"

	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionMessage is one turn in a user's conversation log. Sessions are
// append-only; insertion order is the only ordering guarantee.
type SessionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the unit of work carried on the chat_requests channel.
type ChatRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
	RepoURL  string `json:"repo_url"`
}

func (r *ChatRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user_id is required", errs.ErrMalformedInput)
	}
	if r.Question == "" {
		return fmt.Errorf("%w: question is required", errs.ErrMalformedInput)
	}
	if r.RepoURL == "" {
		return fmt.Errorf("%w: repo_url is required", errs.ErrMalformedInput)
	}
	return nil
}

type QARound struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ChatResponse pairs consecutive user/assistant messages from the session
// history. An empty ChatHistory signals a degraded (failed) request.
type ChatResponse struct {
	ChatHistory []QARound `json:"chat_history"`
}
