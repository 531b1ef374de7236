package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"multfilm/searchbot/internal/domain"
)

const storiesCollection = "stories"

type StoryRepository struct {
	collection *mongo.Collection
}

type storyDoc struct {
	ID         int64  `bson:"_id"`
	Title      string `bson:"title"`
	Content    string `bson:"content,omitempty"`
	ImageURL   string `bson:"imageUrl,omitempty"`
	URL        string `bson:"url,omitempty"`
	ViewsCount int64  `bson:"viewsCount"`
	Likes      int64  `bson:"likes"`
	CreatedAt  int64  `bson:"createdAt"`
	UpdatedAt  int64  `bson:"updatedAt"`
}

// storyCounterFields maps API counters to document fields.
var storyCounterFields = map[domain.StoryCounter]string{
	domain.StoryViews: "viewsCount",
	domain.StoryLikes: "likes",
}

func NewStoryRepository(client *mongo.Client, dbName string) *StoryRepository {
	return &StoryRepository{collection: client.Database(dbName).Collection(storiesCollection)}
}

func (r *StoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *StoryRepository) Latest(ctx context.Context, limit int) ([]domain.Story, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []storyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	stories := make([]domain.Story, 0, len(docs))
	for _, doc := range docs {
		stories = append(stories, doc.toStory())
	}
	return stories, nil
}

func (r *StoryRepository) FindStory(ctx context.Context, id int64) (domain.Story, error) {
	var doc storyDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Story{}, domain.ErrNotFound
		}
		return domain.Story{}, err
	}
	return doc.toStory(), nil
}

// Increment bumps one counter atomically; ErrNotFound when the story does
// not exist.
func (r *StoryRepository) Increment(ctx context.Context, id int64, counter domain.StoryCounter) error {
	field, ok := storyCounterFields[counter]
	if !ok {
		return fmt.Errorf("unknown story counter %q", counter)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: int64(1)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (d storyDoc) toStory() domain.Story {
	return domain.Story{
		ID:         d.ID,
		Title:      d.Title,
		Content:    d.Content,
		ImageURL:   d.ImageURL,
		URL:        d.URL,
		ViewsCount: d.ViewsCount,
		Likes:      d.Likes,
		CreatedAt:  time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:  time.UnixMilli(d.UpdatedAt).UTC(),
	}
}
