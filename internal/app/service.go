package app

import (
	"context"
	"fmt"

	"github.com/skobkin/presencego/internal/domain"
	"github.com/skobkin/presencego/internal/rpc"
)

// Status assembles the current daemon snapshot.
func (r *Runtime) Status() domain.Status {
	cfg := r.CurrentConfig()
	st := domain.Status{
		AppID:        cfg.Discord.AppID,
		Version:      BuildString(),
		Connection:   r.Supervisor.Status(),
		JoinRequests: r.JoinRequests.SnapshotSorted(),
		History:      r.EventRepo != nil,
	}
	if ready, ok := r.Client.ReadyInfo(); ok {
		user := ready.User
		st.User = &user
	}
	if a, ok := r.Client.Presence(); ok {
		st.Presence = a
	}
	if snapshot, ok := r.Updates.CurrentSnapshot(); ok {
		st.Update = &snapshot
	}

	return st
}

// SetPresence replaces the published activity; nil clears it.
func (r *Runtime) SetPresence(a *rpc.Activity) error {
	return r.Client.UpdatePresence(a)
}

func (r *Runtime) ClearPresence() error {
	return r.Client.ClearPresence()
}

// ReplyJoinRequest answers a pending request. The request stays pending when the reply could not be sent.
func (r *Runtime) ReplyJoinRequest(ctx context.Context, userID string, reply rpc.JoinReply) error {
	req, ok := r.JoinRequests.Take(userID)
	if !ok {
		return fmt.Errorf("%w from user %s", domain.ErrUnknownJoinRequest, userID)
	}
	user := rpc.User{ID: req.UserID, Username: req.Username, GlobalName: req.GlobalName, Avatar: req.Avatar}
	if err := r.Client.Reply(ctx, user, reply); err != nil {
		r.JoinRequests.Upsert(req)

		return err
	}

	return nil
}

func (r *Runtime) History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEvent, error) {
	if r.EventRepo == nil {
		return nil, domain.ErrHistoryDisabled
	}

	return r.EventRepo.List(ctx, q)
}

func (r *Runtime) Reconnect() {
	r.Supervisor.Reconnect()
}
