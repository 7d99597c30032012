package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

var _ ports.TaskRepository = (*TaskRepository)(nil)

// TaskRepository stores tasks with embedded subtasks and comments
type TaskRepository struct {
	coll *mongo.Collection
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection(tasksCollection)}
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	if _, err := r.coll.InsertOne(ctx, newTaskDocument(task)); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	var doc taskDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return doc.entity(), nil
}

func (r *TaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	query := bson.M{}
	if filter.ProjectIDs != nil {
		query["project_id"] = bson.M{"$in": idStrings(filter.ProjectIDs)}
	}
	if filter.AssigneeID != nil {
		query["assignee_id"] = filter.AssigneeID.String()
	}
	if filter.DueBefore != nil {
		query["due_date"] = bson.M{"$lt": *filter.DueBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.entity())
	}
	return tasks, nil
}

func (r *TaskRepository) MaxOrder(ctx context.Context, projectID uuid.UUID, status string) (int, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})

	var doc struct {
		Order int `bson:"order"`
	}
	err := r.coll.FindOne(ctx, bson.M{"project_id": projectID.String(), "status": status}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get max order: %w", err)
	}
	return doc.Order, true, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	doc := newTaskDocument(task)
	update := bson.M{"$set": bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"status":      doc.Status,
		"priority":    doc.Priority,
		"assignee_id": doc.AssigneeID,
		"due_date":    doc.DueDate,
		"labels":      doc.Labels,
		"subtasks":    doc.Subtasks,
		"order":       doc.Order,
		"updated_at":  doc.UpdatedAt,
	}}
	return r.updateOne(ctx, task.ID, update)
}

func (r *TaskRepository) UpdatePosition(ctx context.Context, id uuid.UUID, status string, order int) error {
	update := bson.M{"$set": bson.M{"status": status, "order": order, "updated_at": time.Now()}}
	return r.updateOne(ctx, id, update)
}

func (r *TaskRepository) AddComment(ctx context.Context, taskID uuid.UUID, comment entities.Comment) error {
	return r.updateOne(ctx, taskID, bson.M{"$push": bson.M{"comments": newCommentDocument(comment)}})
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return entities.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) updateOne(ctx context.Context, id uuid.UUID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrTaskNotFound
	}
	return nil
}
