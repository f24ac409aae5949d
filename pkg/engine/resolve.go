package engine

import (
	"context"
	"fmt"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/turn"
)

// resolveSession returns the session a request's turn runs on: the session
// named by the conversation reference when one is supplied, a fresh one
// otherwise. The returned id is the canonical conversation id echoed back
// to the caller.
func (e *Engine) resolveSession(ctx context.Context, model, ref string) (turn.Session, string, *api.APIError) {
	if ref != "" {
		id, err := turn.ParseSessionID(ref)
		if err != nil {
			return nil, "", api.NewInternalError(fmt.Sprintf("invalid conversation_id: %v", err))
		}
		sess, err := e.sessions.GetSession(ctx, id)
		if err != nil {
			return nil, "", api.NewInternalError(fmt.Sprintf("conversation not found: %v", err))
		}
		return sess, id, nil
	}

	sess, err := e.sessions.StartSession(ctx, turn.SessionOptions{
		Model:      model,
		Approval:   turn.ApprovalNever,
		Sandbox:    turn.SandboxReadOnly,
		WorkingDir: e.cfg.WorkingDir,
	})
	if err != nil {
		return nil, "", api.NewInternalError(fmt.Sprintf("starting session: %v", err))
	}
	return sess, sess.ID(), nil
}
