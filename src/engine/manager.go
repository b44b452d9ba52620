package engine

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"docmap/src/document"
	"docmap/src/helpers"
	"docmap/src/query"
	"docmap/src/schema"
	"docmap/src/settings"
)

// Manager is the entry point bound to one document type. It turns query
// specs and CRUD intents into store calls and rehydrates raw results into
// typed instances.
type Manager struct {
	schema   *schema.Schema
	store    DocumentStore
	settings *settings.Settings
	logger   *zap.SugaredLogger
}

func NewManager(s *schema.Schema, store DocumentStore, logger *zap.SugaredLogger) *Manager {
	args := settings.GetSettings()
	if logger == nil {
		logger = helpers.NewLogger(args.Verbose, args.Debug)
	}
	return &Manager{
		schema:   s,
		store:    store,
		settings: args,
		logger:   logger,
	}
}

// Schema returns the document type the manager is bound to.
func (m *Manager) Schema() *schema.Schema {
	return m.schema
}

// Query starts an empty query spec bound to the manager's type.
func (m *Manager) Query() query.Query {
	return query.New(m.schema)
}

// Create constructs, validates and persists an instance in one step.
func (m *Manager) Create(ctx context.Context, values map[string]interface{}) (*document.Document, error) {
	doc, err := document.New(m.schema, values)
	if err != nil {
		return nil, err
	}
	return m.Save(ctx, doc)
}

// Save validates the instance and writes it to the store. Instances without
// an identity are inserted and get the store-assigned identity; instances
// with one replace the stored document. Validation failures never reach the
// store.
func (m *Manager) Save(ctx context.Context, doc *document.Document) (*document.Document, error) {
	if err := m.checkBinding(doc.Schema()); err != nil {
		return nil, err
	}
	if err := doc.ValidateForSave(); err != nil {
		return nil, err
	}

	raw, err := doc.ToBSON()
	if err != nil {
		return nil, err
	}

	op := helpers.GenerateUUID()

	id, hasID := doc.ID()
	if !hasID {
		newID, err := m.store.InsertOne(ctx, m.schema.Collection, raw)
		if err != nil {
			return nil, err
		}
		doc.SetID(newID)
		m.logger.Debugw("inserted document", "op", op, "type", m.schema.Name, "id", newID.Hex())
		return doc, nil
	}

	if err := m.store.ReplaceOne(ctx, m.schema.Collection, id, raw); err != nil {
		return nil, err
	}
	m.logger.Debugw("replaced document", "op", op, "type", m.schema.Name, "id", id.Hex())
	return doc, nil
}

// Get fetches one instance by identity. A missing identity yields (nil, nil).
func (m *Manager) Get(ctx context.Context, id primitive.ObjectID) (*document.Document, error) {
	raw, err := m.store.FindOne(ctx, m.schema.Collection, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return document.FromBSON(m.schema, raw)
}

// Delete removes the stored document behind an instance.
func (m *Manager) Delete(ctx context.Context, doc *document.Document) error {
	if err := m.checkBinding(doc.Schema()); err != nil {
		return err
	}
	id, hasID := doc.ID()
	if !hasID {
		return fmt.Errorf("document %s has no identity to delete by", m.schema.Name)
	}
	return m.store.DeleteOne(ctx, m.schema.Collection, id)
}

// FindAll executes a query spec and materializes every matching row.
func (m *Manager) FindAll(ctx context.Context, q query.Query) ([]*document.Document, error) {
	if err := m.checkBinding(q.Schema()); err != nil {
		return nil, err
	}

	filter, err := q.ToFilter()
	if err != nil {
		return nil, err
	}
	opts, err := q.FindOptions()
	if err != nil {
		return nil, err
	}
	if opts.Limit == nil && m.settings.BatchSize > 0 {
		opts.SetBatchSize(m.settings.BatchSize)
	}

	rows, err := m.store.Find(ctx, m.schema.Collection, filter, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]*document.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := document.FromBSON(m.schema, row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindOne executes a query spec and returns the first match, or nil when
// nothing matches.
func (m *Manager) FindOne(ctx context.Context, q query.Query) (*document.Document, error) {
	docs, err := m.FindAll(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Count executes a count with the spec's filter alone; limit and skip do not
// apply.
func (m *Manager) Count(ctx context.Context, q query.Query) (int64, error) {
	if err := m.checkBinding(q.Schema()); err != nil {
		return 0, err
	}
	filter, err := q.ToFilter()
	if err != nil {
		return 0, err
	}
	return m.store.Count(ctx, m.schema.Collection, filter)
}

// LoadReferences resolves every unresolved reference reachable from root and
// returns the number of resolved slots.
func (m *Manager) LoadReferences(ctx context.Context, root *document.Document) (int, error) {
	return LoadReferences(ctx, m.store, m.logger, root)
}

func (m *Manager) checkBinding(s *schema.Schema) error {
	if s != m.schema {
		return fmt.Errorf("manager is bound to document type %s, got %s", m.schema.Name, s.Name)
	}
	return nil
}
