package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/graph-gophers/dataloader/v7"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
	"swapscan/internal/store"
)

type loadersKey struct{}

// loaders batch and cache the child-entity lookups of one request, so
// a page of swaps resolves its pairs with a single find.
type loaders struct {
	token *dataloader.Loader[string, bson.M]
	pair  *dataloader.Loader[string, bson.M]
	user  *dataloader.Loader[string, bson.M]
}

func newLoaders(db store.Reader) *loaders {
	return &loaders{
		token: dataloader.NewBatchedLoader(batchByID(db, models.CollTokens)),
		pair:  dataloader.NewBatchedLoader(batchByID(db, models.CollPairs)),
		user:  dataloader.NewBatchedLoader(batchByID(db, models.CollUsers)),
	}
}

// batchByID fetches one batch of current-version documents keyed by id
// and hands them back in key order.
func batchByID(db store.Reader, coll string) dataloader.BatchFunc[string, bson.M] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[bson.M] {
		results := make([]*dataloader.Result[bson.M], len(keys))

		ids := make(bson.A, len(keys))
		for i, key := range keys {
			ids[i] = key
		}
		docs, err := db.FindDocs(ctx, coll, bson.M{"id": bson.M{"$in": ids}}, nil, store.FindQuery{})
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result[bson.M]{Error: err}
			}
			return results
		}

		byID := make(map[string]bson.M, len(docs))
		for _, doc := range docs {
			byID[models.Str(doc, "id")] = doc
		}
		for i, key := range keys {
			doc, ok := byID[key]
			if !ok {
				results[i] = &dataloader.Result[bson.M]{Error: fmt.Errorf("%s: no document with id %s", coll, key)}
				continue
			}
			results[i] = &dataloader.Result[bson.M]{Data: doc}
		}
		return results
	}
}

func withLoaders(ctx context.Context, l *loaders) context.Context {
	return context.WithValue(ctx, loadersKey{}, l)
}

func loadersFrom(ctx context.Context) (*loaders, error) {
	l, ok := ctx.Value(loadersKey{}).(*loaders)
	if !ok {
		return nil, errors.New("no dataloaders in request context")
	}
	return l, nil
}
