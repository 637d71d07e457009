package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/observability/tracing"
)

const (
	system = "mongodb"
	// mongoID is MongoDB's own key. It is left to the driver; documents are
	// addressed by document.IDField, which is not unique, as in the memory store.
	mongoID = "_id"
)

// collectionAPI is the subset of *mongo.Collection the adapter uses.
type collectionAPI interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) *mongo.SingleResult
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// indexAPI is the subset of mongo.IndexView the adapter uses.
type indexAPI interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
}

var _ document.Collections = (*Adapter)(nil)

func filterOf(q document.Query) bson.D {
	filter := bson.D{}
	for _, c := range q.Conditions() {
		if c.Value == nil {
			// {field: nil} would also match a missing field.
			filter = append(filter, bson.E{Key: c.Field, Value: bson.M{"$type": "null"}})
			continue
		}
		filter = append(filter, bson.E{Key: c.Field, Value: c.Value})
	}
	return filter
}

func toBSON(doc document.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func setOf(u document.Update) bson.D {
	set := bson.M{}
	for k, v := range u {
		set[k] = v
	}
	return bson.D{{Key: "$set", Value: set}}
}

func fromBSON(m bson.M) document.Document {
	out := make(document.Document, len(m))
	for k, v := range m {
		if k == mongoID {
			continue
		}
		out[k] = v
	}
	return out
}

// ensureUnique creates a unique index over the fields of conflict once per
// collection. The partial filter keeps documents without the fields out of it.
func (a *Adapter) ensureUnique(ctx context.Context, name string, conflict document.Query) error {
	conds := conflict.Conditions()
	if len(conds) == 0 {
		return fmt.Errorf("conditional write on %s needs a conflict field", name)
	}
	keys := bson.D{}
	partial := bson.M{}
	fields := make([]string, 0, len(conds))
	for _, c := range conds {
		keys = append(keys, bson.E{Key: c.Field, Value: 1})
		partial[c.Field] = bson.M{"$exists": true}
		fields = append(fields, c.Field)
	}
	cacheKey := name + "/" + strings.Join(fields, ",")
	if _, done := a.unique.Load(cacheKey); done {
		return nil
	}

	opts := options.Index().SetUnique(true).SetPartialFilterExpression(partial)
	if _, err := a.indexes(name).CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts}); err != nil {
		return fmt.Errorf("create unique index on %s(%s): %w", name, strings.Join(fields, ","), err)
	}
	a.unique.Store(cacheKey, struct{}{})
	return nil
}

func (a *Adapter) start(ctx context.Context, op, name string) (context.Context, context.CancelFunc, func(error)) {
	ctx, span := tracing.StartStoreSpan(ctx, system, op, name)
	opCtx, cancel := a.withOperationTimeout(ctx)
	return opCtx, cancel, func(err error) { tracing.End(span, err) }
}

// EnsureCollection creates the lookup index on the id field.
// MongoDB creates the collection itself on first insert.
func (a *Adapter) EnsureCollection(ctx context.Context, name string) (err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpFind, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return err
	}
	model := mongo.IndexModel{Keys: bson.D{{Key: document.IDField, Value: 1}}}
	if _, err := a.indexes(name).CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create id index on %s: %w", name, err)
	}
	return nil
}

// GetCollection returns every document of the collection.
func (a *Adapter) GetCollection(ctx context.Context, name string) ([]document.Document, error) {
	return a.GetDocuments(ctx, name, document.All)
}

// AddDocument inserts doc, assigning an id when it has no truthy one.
func (a *Adapter) AddDocument(ctx context.Context, name string, doc document.Document) (_ document.Document, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpInsert, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	return a.insert(ctx, name, doc)
}

// AddDocumentUnless inserts doc unless a document matches conflict. A unique
// index over the conflict fields closes the gap between the check and the insert.
func (a *Adapter) AddDocumentUnless(ctx context.Context, name string, conflict document.Query, doc document.Document) (_ document.Document, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpInsert, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	if err := a.ensureUnique(ctx, name, conflict); err != nil {
		return nil, err
	}

	n, err := a.collection(name).CountDocuments(ctx, filterOf(conflict))
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", name, err)
	}
	if n > 0 {
		return nil, document.ErrConflict
	}
	return a.insert(ctx, name, doc)
}

func (a *Adapter) insert(ctx context.Context, name string, doc document.Document) (document.Document, error) {
	stored := doc.Clone()
	if stored == nil {
		stored = document.Document{}
	}
	if !stored.HasID() {
		stored[document.IDField] = identifier.New()
	}
	_, err := a.collection(name).InsertOne(ctx, toBSON(stored))
	if mongo.IsDuplicateKeyError(err) {
		return nil, document.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", name, err)
	}
	return stored, nil
}

// GetDocument returns the first document matching q.
func (a *Adapter) GetDocument(ctx context.Context, name string, q document.Query) (_ document.Document, _ bool, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpFind, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, false, err
	}
	return decodeOne(a.collection(name).FindOne(ctx, filterOf(q)))
}

// GetDocuments returns every document matching q in natural order.
func (a *Adapter) GetDocuments(ctx context.Context, name string, q document.Query) (_ []document.Document, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpFind, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}

	cur, err := a.collection(name).Find(ctx, filterOf(q))
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", name, err)
	}
	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	docs := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, fromBSON(row))
	}
	return docs, nil
}

// UpdateDocument sets the fields of u on the first match and returns the merged document.
func (a *Adapter) UpdateDocument(ctx context.Context, name string, q document.Query, u document.Update) (_ document.Document, _ bool, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpUpdate, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, false, err
	}
	if len(u) == 0 {
		return decodeOne(a.collection(name).FindOne(ctx, filterOf(q)))
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeOne(a.collection(name).FindOneAndUpdate(ctx, filterOf(q), setOf(u), opts))
}

// UpdateDocumentUnless sets the fields of u on the first match of q unless a
// different document matches conflict.
func (a *Adapter) UpdateDocumentUnless(ctx context.Context, name string, q, conflict document.Query, u document.Update) (_ document.Document, _ bool, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpUpdate, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, false, err
	}
	if err := a.ensureUnique(ctx, name, conflict); err != nil {
		return nil, false, err
	}

	var target bson.M
	err = a.collection(name).FindOne(ctx, filterOf(q)).Decode(&target)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find in %s: %w", name, err)
	}
	targetID := bson.E{Key: mongoID, Value: target[mongoID]}

	others := append(filterOf(conflict), bson.E{Key: mongoID, Value: bson.M{"$ne": target[mongoID]}})
	n, err := a.collection(name).CountDocuments(ctx, others)
	if err != nil {
		return nil, true, fmt.Errorf("check %s: %w", name, err)
	}
	if n > 0 {
		return nil, true, document.ErrConflict
	}
	if len(u) == 0 {
		return fromBSON(target), true, nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	doc, ok, err := decodeOne(a.collection(name).FindOneAndUpdate(ctx, bson.D{targetID}, setOf(u), opts))
	if mongo.IsDuplicateKeyError(err) {
		return nil, true, document.ErrConflict
	}
	return doc, ok, err
}

// UpdateDocuments sets the fields of u on every match.
func (a *Adapter) UpdateDocuments(ctx context.Context, name string, q document.Query, u document.Update) (_ bool, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpUpdate, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return false, err
	}
	if len(u) == 0 {
		n, err := a.collection(name).CountDocuments(ctx, filterOf(q))
		return n > 0, err
	}
	res, err := a.collection(name).UpdateMany(ctx, filterOf(q), setOf(u))
	if err != nil {
		return false, fmt.Errorf("update %s: %w", name, err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteDocument removes the first match and returns it.
func (a *Adapter) DeleteDocument(ctx context.Context, name string, q document.Query) (_ document.Document, _ bool, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpDelete, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return nil, false, err
	}
	return decodeOne(a.collection(name).FindOneAndDelete(ctx, filterOf(q)))
}

// DeleteDocuments removes every match.
func (a *Adapter) DeleteDocuments(ctx context.Context, name string, q document.Query) (_ bool, err error) {
	ctx, cancel, end := a.start(ctx, tracing.OpDelete, name)
	defer func() { cancel(); end(err) }()
	if err := a.ensureOpen(); err != nil {
		return false, err
	}
	res, err := a.collection(name).DeleteMany(ctx, filterOf(q))
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", name, err)
	}
	return res.DeletedCount > 0, nil
}

func decodeOne(res *mongo.SingleResult) (document.Document, bool, error) {
	var row bson.M
	err := res.Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return fromBSON(row), true, nil
}
