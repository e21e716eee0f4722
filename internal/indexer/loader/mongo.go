package loader

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
)

type segmentDoc struct {
	SegmentID    bson.RawValue `bson:"segment_id"`
	Summary      *string       `bson:"summary"`
	Keywords     []string      `bson:"keywords"`
	TextPreview  *string       `bson:"text_preview"`
	StartTimeSec *float64      `bson:"start_time_sec"`
	NumSentences *int          `bson:"num_sentences"`
}

type episodeDoc struct {
	EpisodeID string       `bson:"episode_id"`
	Segments  []segmentDoc `bson:"segments"`
}

// Mongo loads one episode per document, in the same shape as the segment
// files.
type Mongo struct {
	collection *mongo.Collection
	namespace  string
}

func NewMongo(collection *mongo.Collection, namespace string) *Mongo {
	return &Mongo{collection: collection, namespace: namespace}
}

func (m *Mongo) Name() string {
	return "mongo:" + m.namespace
}

func (m *Mongo) Load(ctx context.Context) ([]index.RawEpisode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "episode_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.namespace, err)
	}
	defer cursor.Close(ctx)

	var episodes []index.RawEpisode
	for cursor.Next(ctx) {
		origin := fmt.Sprintf("mongo:%s/%v", m.namespace, cursor.Current.Lookup("_id"))
		var doc episodeDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &index.LoadError{
				Origin: origin,
				Field:  "document",
				Reason: "is not a valid episode record: " + err.Error(),
			}
		}
		ep, err := toRawEpisode(doc, origin)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.namespace, err)
	}
	return episodes, nil
}

func toRawEpisode(doc episodeDoc, origin string) (index.RawEpisode, error) {
	ep := index.RawEpisode{EpisodeID: doc.EpisodeID, Origin: origin}
	if doc.Segments == nil {
		// Missing field; the builder reports it.
		return ep, nil
	}
	ep.Segments = make([]index.RawSegment, 0, len(doc.Segments))
	for i, s := range doc.Segments {
		id, err := rawID(s.SegmentID)
		if err != nil {
			return index.RawEpisode{}, &index.LoadError{
				Origin:    origin,
				EpisodeID: doc.EpisodeID,
				SegmentID: strconv.Itoa(i),
				Field:     "segment_id",
				Reason:    err.Error(),
			}
		}
		ep.Segments = append(ep.Segments, index.RawSegment{
			SegmentID:    id,
			Summary:      s.Summary,
			Keywords:     s.Keywords,
			TextPreview:  s.TextPreview,
			StartTimeSec: s.StartTimeSec,
			NumSentences: s.NumSentences,
		})
	}
	return ep, nil
}

// rawID accepts string and numeric BSON ids, mirroring RawID's JSON rules.
func rawID(v bson.RawValue) (index.RawID, error) {
	if len(v.Value) == 0 {
		return "", nil
	}
	if s, ok := v.StringValueOK(); ok {
		return index.RawID(s), nil
	}
	if n, ok := v.Int32OK(); ok {
		return index.RawID(strconv.FormatInt(int64(n), 10)), nil
	}
	if n, ok := v.Int64OK(); ok {
		return index.RawID(strconv.FormatInt(n, 10)), nil
	}
	if f, ok := v.DoubleOK(); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return index.RawID(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return "", fmt.Errorf("has unsupported BSON type %s", v.Type)
}
