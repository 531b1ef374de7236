package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/search"
)

// relevancePipeline scores Telegram films server side with the same signals
// as search.Score. Titles are matched through the stored titleFolded field
// because $toLower only folds ASCII.
func relevancePipeline(query domain.TitleQuery, limit int) mongo.Pipeline {
	overlap := bson.A{
		bson.M{"titleFolded": bson.M{"$regex": regexp.QuoteMeta(query.Text)}},
	}
	for _, word := range query.Words {
		overlap = append(overlap, bson.M{"titleFolded": bson.M{"$regex": regexp.QuoteMeta(word)}})
	}
	for _, trigram := range query.Trigrams {
		overlap = append(overlap, bson.M{"titleFolded": bson.M{"$regex": regexp.QuoteMeta(trigram)}})
	}
	if query.Soundex != "" {
		overlap = append(overlap, bson.M{"titleSoundex": query.Soundex})
	}

	position := bson.M{"$indexOfCP": bson.A{"$titleFolded", query.Text}}
	terms := bson.A{
		bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$titleFolded", query.Text}}, search.ScoreExact, 0}},
		bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{position, 0}}, search.ScorePrefix, 0}},
		bson.M{"$cond": bson.A{bson.M{"$gte": bson.A{position, 0}}, search.ScoreSubstring, 0}},
	}
	for _, word := range query.Words {
		terms = append(terms, containsTerm(word, search.ScorePerWord))
	}
	for _, trigram := range query.Trigrams {
		terms = append(terms, containsTerm(trigram, search.ScorePerTrigram))
	}
	if query.Soundex != "" {
		terms = append(terms, bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$titleSoundex", query.Soundex}}, search.ScorePhonetic, 0,
		}})
	}
	terms = append(terms, bson.M{"$subtract": bson.A{
		search.ScoreLengthBaseline,
		bson.M{"$abs": bson.M{"$subtract": bson.A{"$titleLength", query.Length}}},
	}})

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"sourceType": domain.SourceTelegram, "$or": overlap}}},
		{{Key: "$addFields", Value: bson.M{"relevance": bson.M{"$add": terms}}}},
		{{Key: "$match", Value: bson.M{"relevance": bson.M{"$gt": 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "relevance", Value: -1}, {Key: "createdAt", Value: -1}}}},
		{{Key: "$limit", Value: int64(search.ClampLimit(limit))}},
	}
}

func containsTerm(needle string, points int) bson.M {
	return bson.M{"$cond": bson.A{
		bson.M{"$gte": bson.A{bson.M{"$indexOfCP": bson.A{"$titleFolded", needle}}, 0}},
		points,
		0,
	}}
}
