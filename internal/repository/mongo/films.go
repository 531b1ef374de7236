package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/search"
)

const (
	filmsCollection    = "films"
	countersCollection = "counters"
	filmCodeCounter    = "film_code"
)

type FilmRepository struct {
	films    *mongo.Collection
	counters *mongo.Collection
}

type detailDoc struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

type filmDoc struct {
	ID           string      `bson:"_id"`
	Code         string      `bson:"code"`
	Title        string      `bson:"title"`
	TitleFolded  string      `bson:"titleFolded"`
	TitleLength  int         `bson:"titleLength"`
	TitleSoundex string      `bson:"titleSoundex"`
	Description  string      `bson:"description,omitempty"`
	Details      []detailDoc `bson:"details,omitempty"`
	SourceType   string      `bson:"sourceType"`
	VideoURL     string      `bson:"videoUrl,omitempty"`
	ChatID       int64       `bson:"chatId"`
	MessageID    int64       `bson:"messageId"`
	FileID       string      `bson:"fileId,omitempty"`
	Downloads    int64       `bson:"downloads"`
	CreatedAt    int64       `bson:"createdAt"`
	UpdatedAt    int64       `bson:"updatedAt"`
}

type scoredFilmDoc struct {
	Film      filmDoc `bson:",inline"`
	Relevance float64 `bson:"relevance"`
}

func NewFilmRepository(client *mongo.Client, dbName string) *FilmRepository {
	db := client.Database(dbName)
	return &FilmRepository{
		films:    db.Collection(filmsCollection),
		counters: db.Collection(countersCollection),
	}
}

func (r *FilmRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.films == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "messageId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "titleSoundex", Value: 1}}},
	}
	_, err := r.films.Indexes().CreateMany(ctx, models)
	return err
}

func (r *FilmRepository) QueryByRelevance(ctx context.Context, query domain.TitleQuery, limit int) ([]domain.Candidate, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, nil
	}
	cursor, err := r.films.Aggregate(ctx, relevancePipeline(query, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []scoredFilmDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Candidate, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.Candidate{Film: fromDoc(doc.Film), Relevance: doc.Relevance})
	}
	return out, nil
}

func (r *FilmRepository) FindByCode(ctx context.Context, code string) (domain.Film, error) {
	return r.findOne(ctx, bson.M{"code": strings.ToUpper(strings.TrimSpace(code))})
}

func (r *FilmRepository) FindByID(ctx context.Context, id string) (domain.Film, error) {
	return r.findOne(ctx, bson.M{"_id": strings.TrimSpace(id)})
}

func (r *FilmRepository) findOne(ctx context.Context, filter bson.M) (domain.Film, error) {
	var doc filmDoc
	if err := r.films.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Film{}, domain.ErrNotFound
		}
		return domain.Film{}, err
	}
	return fromDoc(doc), nil
}

// Recent lists the newest films first.
func (r *FilmRepository) Recent(ctx context.Context, limit int) ([]domain.Film, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(search.ClampLimit(limit)))
	cursor, err := r.films.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []filmDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	films := make([]domain.Film, 0, len(docs))
	for _, doc := range docs {
		films = append(films, fromDoc(doc))
	}
	return films, nil
}

// Store saves a film parsed from a storage channel post. A post that was
// already stored (same chat and message) keeps its id and code; new posts
// get the next C<n> code.
func (r *FilmRepository) Store(ctx context.Context, data domain.FilmData) (domain.Film, error) {
	if strings.TrimSpace(data.Title) == "" {
		return domain.Film{}, domain.ErrInvalidFilm
	}
	now := time.Now().UTC()
	filter := bson.M{"chatId": data.ChatID, "messageId": data.MessageID}

	existing, err := r.findOne(ctx, filter)
	switch {
	case err == nil:
		return r.updateFromPost(ctx, existing, data, now)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Film{}, err
	}

	code, err := r.nextCode(ctx)
	if err != nil {
		return domain.Film{}, fmt.Errorf("allocate film code: %w", err)
	}
	film := domain.Film{
		ID:          uuid.NewString(),
		Code:        code,
		Title:       strings.TrimSpace(data.Title),
		Description: data.Description,
		Details:     data.Details,
		SourceType:  domain.SourceTelegram,
		VideoURL:    data.VideoURL,
		ChatID:      data.ChatID,
		MessageID:   data.MessageID,
		FileID:      data.FileID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.films.InsertOne(ctx, toDoc(film)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Another update stored the same post first.
			stored, findErr := r.findOne(ctx, filter)
			if findErr != nil {
				return domain.Film{}, err
			}
			return r.updateFromPost(ctx, stored, data, now)
		}
		return domain.Film{}, err
	}
	return film, nil
}

func (r *FilmRepository) updateFromPost(ctx context.Context, film domain.Film, data domain.FilmData, now time.Time) (domain.Film, error) {
	film.Title = strings.TrimSpace(data.Title)
	film.Description = data.Description
	film.Details = data.Details
	film.VideoURL = data.VideoURL
	film.FileID = data.FileID
	film.UpdatedAt = now
	doc := toDoc(film)
	_, err := r.films.UpdateOne(ctx, bson.M{"_id": film.ID}, bson.M{"$set": bson.M{
		"title":        doc.Title,
		"titleFolded":  doc.TitleFolded,
		"titleLength":  doc.TitleLength,
		"titleSoundex": doc.TitleSoundex,
		"description":  doc.Description,
		"details":      doc.Details,
		"videoUrl":     doc.VideoURL,
		"fileId":       doc.FileID,
		"updatedAt":    doc.UpdatedAt,
	}})
	if err != nil {
		return domain.Film{}, err
	}
	return film, nil
}

// nextCode increments the film code sequence atomically.
func (r *FilmRepository) nextCode(ctx context.Context) (string, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": filmCodeCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", err
	}
	return domain.CodePrefix + strconv.FormatInt(counter.Seq, 10), nil
}

func (r *FilmRepository) IncrementDownloads(ctx context.Context, id string) error {
	res, err := r.films.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"downloads": int64(1)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDoc(f domain.Film) filmDoc {
	details := make([]detailDoc, 0, len(f.Details))
	for _, d := range f.Details {
		details = append(details, detailDoc{Key: d.Key, Value: d.Value})
	}
	folded := search.FoldTitle(f.Title)
	sourceType := f.SourceType
	if sourceType == "" {
		sourceType = domain.SourceTelegram
	}
	return filmDoc{
		ID:           f.ID,
		Code:         f.Code,
		Title:        f.Title,
		TitleFolded:  folded,
		TitleLength:  utf8.RuneCountInString(folded),
		TitleSoundex: search.Soundex(folded),
		Description:  f.Description,
		Details:      details,
		SourceType:   sourceType,
		VideoURL:     f.VideoURL,
		ChatID:       f.ChatID,
		MessageID:    f.MessageID,
		FileID:       f.FileID,
		Downloads:    f.Downloads,
		CreatedAt:    f.CreatedAt.UnixMilli(),
		UpdatedAt:    f.UpdatedAt.UnixMilli(),
	}
}

func fromDoc(doc filmDoc) domain.Film {
	var details []domain.FilmDetail
	if len(doc.Details) > 0 {
		details = make([]domain.FilmDetail, 0, len(doc.Details))
		for _, d := range doc.Details {
			details = append(details, domain.FilmDetail{Key: d.Key, Value: d.Value})
		}
	}
	return domain.Film{
		ID:          doc.ID,
		Code:        doc.Code,
		Title:       doc.Title,
		Description: doc.Description,
		Details:     details,
		SourceType:  doc.SourceType,
		VideoURL:    doc.VideoURL,
		ChatID:      doc.ChatID,
		MessageID:   doc.MessageID,
		FileID:      doc.FileID,
		Downloads:   doc.Downloads,
		CreatedAt:   time.UnixMilli(doc.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMilli(doc.UpdatedAt).UTC(),
	}
}
