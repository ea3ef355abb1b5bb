// Package notify defines the outbound delivery capability the core consumes.
// The core never depends on delivery succeeding: a failed send to a peer is
// logged by the caller and swallowed.
package notify

import "context"

// SendOpts carries provider-specific presentation options. Keyboard is an
// opaque reply-markup payload built by the provider package.
type SendOpts struct {
	ParseMode string
	Keyboard  any
}

type Notifier interface {
	SendText(ctx context.Context, userID int64, text string, opts *SendOpts) error
	SendPhoto(ctx context.Context, userID int64, photoRef, caption string, opts *SendOpts) error
	AnswerCallback(ctx context.Context, queryID, text string, alert bool) error
}
