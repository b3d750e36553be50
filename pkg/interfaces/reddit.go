package interfaces

import (
	"context"

	"redwarm/internal/model"
)

// ActionResult outcome of one Reddit action
type ActionResult struct {
	Success  bool `json:"success"`
	NewKarma int  `json:"new_karma"` // cumulative karma after the action, 0 when unknown
}

// RedditClient abstracts authentication, rate limiting and the actual
// upvote/comment/post operations against Reddit.
type RedditClient interface {
	// PerformAction executes one action on behalf of the account.
	// Transient failures are returned as plain errors and retried by the
	// queue; permanent failures must satisfy IsPermanent.
	PerformAction(ctx context.Context, account *model.Account, action model.ActionType) (*ActionResult, error)
}
