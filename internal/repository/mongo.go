package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

const (
	todosCollection       = "todos"
	attachmentsCollection = "attachments"
	uiStateCollection     = "ui_state"
)

type todoDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DueAt       *time.Time         `bson:"dueAt,omitempty"`
	Completed   bool               `bson:"completed"`
	FoundTodo   bool               `bson:"foundTodo"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d todoDocument) toDomain() domain.Todo {
	return domain.Todo{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		DueAt:       d.DueAt,
		Completed:   d.Completed,
		FoundTodo:   d.FoundTodo,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type attachmentDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	TodoID      primitive.ObjectID `bson:"todoId"`
	Name        string             `bson:"name"`
	Size        int64              `bson:"size"`
	StoragePath string             `bson:"storagePath"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d attachmentDocument) toDomain() domain.Attachment {
	return domain.Attachment{
		ID:          d.ID.Hex(),
		TodoID:      d.TodoID.Hex(),
		Name:        d.Name,
		Size:        d.Size,
		StoragePath: d.StoragePath,
		CreatedAt:   d.CreatedAt,
	}
}

// mongoTodoRepository implements TodoRepository on a mongo collection.
// Ids are ObjectID hex strings, so _id order is insertion order.
type mongoTodoRepository struct {
	coll *mongo.Collection
}

func NewMongoTodoRepository(db *mongo.Database) TodoRepository {
	return &mongoTodoRepository{coll: db.Collection(todosCollection)}
}

func (r *mongoTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := todoDocument{
		ID:          primitive.NewObjectID(),
		Title:       todo.Title,
		Description: todo.Description,
		DueAt:       todo.DueAt,
		Completed:   todo.Completed,
		FoundTodo:   todo.FoundTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}
	*todo = doc.toDomain()
	return nil
}

func (r *mongoTodoRepository) FindByID(ctx context.Context, id string) (*domain.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc todoDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding todo %s: %w", id, err)
	}
	todo := doc.toDomain()
	return &todo, nil
}

func (r *mongoTodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}

	var docs []todoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding todos: %w", err)
	}

	todos := make([]domain.Todo, 0, len(docs))
	for _, d := range docs {
		todos = append(todos, d.toDomain())
	}
	return todos, nil
}

func (r *mongoTodoRepository) UpdateByID(ctx context.Context, id string, patch domain.TodoPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if !patch.ClearDueAt && patch.DueAt != nil {
		set["dueAt"] = *patch.DueAt
	}
	update := bson.M{"$set": set}
	if patch.ClearDueAt {
		update["$unset"] = bson.M{"dueAt": ""}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("updating todo %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTodoRepository) ToggleCompleted(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
		{Key: "updatedAt", Value: "$$NOW"},
	}}}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, pipeline)
	if err != nil {
		return fmt.Errorf("toggling todo %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTodoRepository) MarkFound(ctx context.Context, query string, match domain.FoundMatch) (int64, error) {
	literal := bson.D{{Key: "$literal", Value: query}}

	var cond interface{}
	switch {
	case query == "":
		cond = bson.D{{Key: "$literal", Value: false}}
	case match == domain.FoundMatchContains:
		cond = bson.D{{Key: "$gte", Value: bson.A{
			bson.D{{Key: "$indexOfCP", Value: bson.A{"$title", literal}}},
			0,
		}}}
	default:
		cond = bson.D{{Key: "$eq", Value: bson.A{"$title", literal}}}
	}

	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.D{{Key: "foundTodo", Value: cond}}}}}
	if _, err := r.coll.UpdateMany(ctx, bson.M{}, pipeline); err != nil {
		return 0, fmt.Errorf("marking found todos: %w", err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"foundTodo": true})
	if err != nil {
		return 0, fmt.Errorf("counting found todos: %w", err)
	}
	return n, nil
}

func (r *mongoTodoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoAttachmentRepository struct {
	coll *mongo.Collection
}

func NewMongoAttachmentRepository(db *mongo.Database) AttachmentRepository {
	return &mongoAttachmentRepository{coll: db.Collection(attachmentsCollection)}
}

func (r *mongoAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	todoOID, err := primitive.ObjectIDFromHex(attachment.TodoID)
	if err != nil {
		return fmt.Errorf("inserting attachment: invalid todo id %q", attachment.TodoID)
	}

	doc := attachmentDocument{
		ID:          primitive.NewObjectID(),
		TodoID:      todoOID,
		Name:        attachment.Name,
		Size:        attachment.Size,
		StoragePath: attachment.StoragePath,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	*attachment = doc.toDomain()
	return nil
}

func (r *mongoAttachmentRepository) FindOne(ctx context.Context, todoID, id string) (*domain.Attachment, error) {
	filter, ok := attachmentFilter(todoID, id)
	if !ok {
		return nil, ErrNotFound
	}

	var doc attachmentDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding attachment %s: %w", id, err)
	}
	attachment := doc.toDomain()
	return &attachment, nil
}

func (r *mongoAttachmentRepository) FindByTodo(ctx context.Context, todoID string) ([]domain.Attachment, error) {
	attachments := []domain.Attachment{}
	todoOID, err := primitive.ObjectIDFromHex(todoID)
	if err != nil {
		return attachments, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"todoId": todoOID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing attachments for todo %s: %w", todoID, err)
	}

	var docs []attachmentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding attachments: %w", err)
	}
	for _, d := range docs {
		attachments = append(attachments, d.toDomain())
	}
	return attachments, nil
}

func (r *mongoAttachmentRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting attachments: %w", err)
	}
	return n, nil
}

func (r *mongoAttachmentRepository) CountByName(ctx context.Context, name string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return 0, fmt.Errorf("counting attachments named %q: %w", name, err)
	}
	return n, nil
}

func (r *mongoAttachmentRepository) Delete(ctx context.Context, todoID, id string) error {
	filter, ok := attachmentFilter(todoID, id)
	if !ok {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("deleting attachment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func attachmentFilter(todoID, id string) (bson.M, bool) {
	todoOID, err := primitive.ObjectIDFromHex(todoID)
	if err != nil {
		return nil, false
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "todoId": todoOID}, true
}

type mongoEditingStore struct {
	coll *mongo.Collection
}

func NewMongoEditingStore(db *mongo.Database) EditingStore {
	return &mongoEditingStore{coll: db.Collection(uiStateCollection)}
}

type uiStateDocument struct {
	Slot      string    `bson:"_id"`
	TodoID    string    `bson:"todoId"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (s *mongoEditingStore) Get(ctx context.Context) (string, error) {
	var doc uiStateDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": editingSlot}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("reading editing state: %w", err)
	}
	return doc.TodoID, nil
}

func (s *mongoEditingStore) Set(ctx context.Context, todoID string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": editingSlot},
		bson.M{"$set": bson.M{"todoId": todoID, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("writing editing state: %w", err)
	}
	return nil
}

func (s *mongoEditingStore) ClearIf(ctx context.Context, todoID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": editingSlot, "todoId": todoID}); err != nil {
		return fmt.Errorf("clearing editing state: %w", err)
	}
	return nil
}
