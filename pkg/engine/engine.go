package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/transport"
	"github.com/rhuss/bruecke/pkg/turn"
)

// Engine adapts completion-shaped API requests onto the turn protocol. It
// implements transport.Handler; sessions are owned by the turn.Manager
// behind it.
type Engine struct {
	sessions turn.Manager
	cfg      Config
	created  int64
}

// Ensure Engine satisfies the transport contracts at compile time.
var (
	_ transport.Handler      = (*Engine)(nil)
	_ transport.ModelCatalog = (*Engine)(nil)
)

// New creates an engine driving turns through the given session manager.
func New(sessions turn.Manager, cfg Config) (*Engine, error) {
	if sessions == nil {
		return nil, errors.New("engine: session manager is required")
	}
	return &Engine{
		sessions: sessions,
		cfg:      cfg,
		created:  time.Now().Unix(),
	}, nil
}

// CreateChatCompletion serves one chat-dialect request: normalize the
// messages into an instruction, resolve the session, run the turn, and
// write the aggregate body or chunk stream.
func (e *Engine) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w transport.ChatCompletionWriter) error {
	if req.Model == "" {
		return api.NewInvalidRequestError("model is required")
	}
	instruction, apiErr := mergeChatMessages(req.Messages)
	if apiErr != nil {
		return apiErr
	}

	model := mapModel(req.Model)
	session, convID, apiErr := e.resolveSession(ctx, model, req.ConversationID)
	if apiErr != nil {
		return apiErr
	}

	turnReq := e.newTurnRequest(instruction, model)
	if req.Stream {
		return e.streamChatCompletion(ctx, req, turnReq, session, convID, w)
	}
	return e.completeChat(ctx, req, turnReq, session, convID, w)
}

// CreateResponse serves one responses-dialect request the same way, with
// the dialect's input forms and event vocabulary.
func (e *Engine) CreateResponse(ctx context.Context, req *api.ResponseRequest, w transport.ResponseWriter) error {
	if req.Model == "" {
		return api.NewInvalidRequestError("model is required")
	}
	instruction, apiErr := mergeResponseInput(req)
	if apiErr != nil {
		return apiErr
	}

	model := mapModel(req.Model)
	session, convID, apiErr := e.resolveSession(ctx, model, req.ConversationID)
	if apiErr != nil {
		return apiErr
	}

	turnReq := e.newTurnRequest(instruction, model)
	if req.Stream {
		return e.streamResponse(ctx, req, turnReq, session, convID, w)
	}
	return e.completeResponse(ctx, req, turnReq, session, convID, w)
}

// newTurnRequest builds the submission for one turn. Every turn runs with a
// fresh id, approval disabled, and a read-only sandbox; the adapter never
// surfaces approval prompts to API callers.
func (e *Engine) newTurnRequest(instruction, model string) turn.Request {
	return turn.Request{
		ID:          turn.NewRequestID(),
		Instruction: instruction,
		Model:       model,
		Approval:    turn.ApprovalNever,
		Sandbox:     turn.SandboxReadOnly,
		WorkingDir:  e.cfg.WorkingDir,
	}
}
