// Package core is the orchestration layer.  It turns a validated
// Config into a complete operational mode and owns the queue's
// lifecycle for that mode.
//
// Architecture layers (bottom → top):
//
//	mqueue  →  session  →  core  →  cmd (CLI)
//
// Build is the single dispatch point; cmd never touches a queue
// directly.
package core

import (
	"context"

	"pmq/internal/mqueue"
)

// Mode represents a complete operational mode of pmq (serve a session
// or unlink a queue).  Each mode owns its full lifecycle from opening
// the queue to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// OpenFunc opens a queue.  The default is mqueue.Open; tests substitute
// an in-memory queue.
type OpenFunc func(name string, opts mqueue.OpenOptions) (mqueue.Interface, error)

// UnlinkFunc removes a queue by name.
type UnlinkFunc func(name string) error

func openKernelQueue(name string, opts mqueue.OpenOptions) (mqueue.Interface, error) {
	q, err := mqueue.Open(name, opts)
	if err != nil {
		return nil, err
	}
	return q, nil
}
