package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"multfilm/searchbot/internal/domain"
)

const searchesCollection = "searches"

// SearchLogRepository keeps one row per user search for analytics.
type SearchLogRepository struct {
	collection *mongo.Collection
}

type searchLogDoc struct {
	Query       string `bson:"query"`
	ResultCount int    `bson:"resultsCount"`
	RequesterID int64  `bson:"userChatId"`
	CreatedAt   int64  `bson:"createdAt"`
}

func NewSearchLogRepository(client *mongo.Client, dbName string) *SearchLogRepository {
	return &SearchLogRepository{collection: client.Database(dbName).Collection(searchesCollection)}
}

func (r *SearchLogRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userChatId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *SearchLogRepository) LogSearch(ctx context.Context, entry domain.SearchLog) error {
	_, err := r.collection.InsertOne(ctx, searchLogDoc{
		Query:       entry.Query,
		ResultCount: entry.ResultCount,
		RequesterID: entry.RequesterID,
		CreatedAt:   entry.CreatedAt.UnixMilli(),
	})
	return err
}
