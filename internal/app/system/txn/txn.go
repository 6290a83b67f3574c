// Package txn runs a group of writes in a Mongo multi-document transaction
// when the deployment supports one.
//
// Standalone servers (local development, some test setups) reject
// transactions. The Runner detects that once, logs it, and from then on
// runs the writes sequentially.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes that mean "transactions are not available here".
const (
	codeIllegalOperation      = 20
	codeNoReplicationEnabled  = 51
	codeOperationNotSupported = 263
)

// IsNotSupported reports whether err says the server cannot run a
// transaction, as opposed to the transaction itself failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoReplicationEnabled, codeOperationNotSupported:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}

// Runner runs functions inside a transaction on client.
type Runner struct {
	client      *mongo.Client
	log         *zap.Logger
	unsupported atomic.Bool
}

// New returns a Runner for client.
func New(client *mongo.Client, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, log: log}
}

// Run calls fn inside a transaction. The context passed to fn carries the
// session, so store calls made with it join the transaction. fn may be
// called more than once when the driver retries a transient failure.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.client == nil || r.unsupported.Load() {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.fallback(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.fallback(err)
		return fn(ctx)
	}
	return err
}

func (r *Runner) fallback(err error) {
	if r.unsupported.CompareAndSwap(false, true) {
		r.log.Warn("mongo transactions unavailable; writes will run without a transaction",
			zap.Error(err))
	}
}
