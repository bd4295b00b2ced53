package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TxTimeout bounds a whole transaction including driver retries.
const TxTimeout = 10 * time.Second

// RunInTransaction executes fn inside a multi-document transaction. Repository
// calls made with the context passed to fn join the transaction. The driver
// retries fn as a whole on transient errors, so fn must not keep state across
// attempts.
func RunInTransaction(ctx context.Context, client *mongo.Client, fn func(txCtx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, TxTimeout)
	defer cancel()

	sess, err := client.StartSession()
	if err != nil {
		return ClassifyError("start session", err)
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	if err != nil {
		return ClassifyError("transaction", err)
	}
	return nil
}
