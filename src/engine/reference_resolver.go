package engine

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"docmap/src/document"
	"docmap/src/schema"
)

// LoadReferences walks root's field graph, including embedded documents and
// lists of them, and resolves every unresolved reference slot. Slots are
// grouped by target type and each group is fetched with a single
// identity-set query against the target's collection; groups run
// concurrently and join before splicing. A fetched instance is shared by
// every slot that pointed at its identity. Returns the number of slots
// resolved.
func LoadReferences(ctx context.Context, store DocumentStore, logger *zap.SugaredLogger, root *document.Document) (int, error) {
	slots := root.CollectUnresolvedReferences()
	if len(slots) == 0 {
		return 0, nil
	}

	byTarget := make(map[*schema.Schema][]*document.Reference)
	for _, ref := range slots {
		byTarget[ref.Target] = append(byTarget[ref.Target], ref)
	}

	type batchResult struct {
		target *schema.Schema
		docs   map[primitive.ObjectID]*document.Document
		err    error
	}

	var wg sync.WaitGroup
	results := make(chan batchResult, len(byTarget))

	for target, refs := range byTarget {
		ids := distinctIDs(refs)

		wg.Add(1)
		go func(target *schema.Schema, ids []primitive.ObjectID) {
			defer wg.Done()

			filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
			rows, err := store.Find(ctx, target.Collection, filter, options.Find())
			if err != nil {
				results <- batchResult{target: target, err: err}
				return
			}

			docs := make(map[primitive.ObjectID]*document.Document, len(rows))
			for _, row := range rows {
				doc, err := document.FromBSON(target, row)
				if err != nil {
					results <- batchResult{target: target, err: err}
					return
				}
				if id, hasID := doc.ID(); hasID {
					docs[id] = doc
				}
			}
			results <- batchResult{target: target, docs: docs}
		}(target, ids)
	}

	wg.Wait()
	close(results)

	resolved := 0
	var errs error
	for result := range results {
		if result.err != nil {
			errs = multierr.Append(errs, result.err)
			continue
		}
		for _, ref := range byTarget[result.target] {
			if doc, ok := result.docs[ref.ID]; ok {
				ref.Resolve(doc)
				resolved++
			}
		}
	}

	if errs != nil {
		return resolved, errs
	}

	if logger != nil {
		logger.Debugw("resolved references",
			"type", root.Schema().Name, "targets", len(byTarget), "slots", resolved)
	}
	return resolved, nil
}

func distinctIDs(refs []*document.Reference) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(refs))
	ids := make([]primitive.ObjectID, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		ids = append(ids, ref.ID)
	}
	return ids
}
