package audit

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annualparty/game-services/internal/models"
)

const shakeCollection = "shake_samples"

// retention for audited samples; they are never re-read for gameplay
const sampleTTL = 24 * time.Hour

// Connect opens the Mongo database named in MONGODB_URI.
func Connect() (*mongo.Database, context.CancelFunc, error) {
	mongoURI := os.Getenv("MONGODB_URI")

	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, err
	}

	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		return nil, nil, err
	}

	return client.Database(dbName), cancel, nil
}

// ShakeLog writes raw shake samples to a TTL collection for audit. Gameplay
// never reads them back.
type ShakeLog struct {
	coll *mongo.Collection
}

func NewShakeLog(db *mongo.Database) *ShakeLog {
	coll := db.Collection(shakeCollection)

	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	}

	if _, err := coll.Indexes().CreateOne(context.TODO(), indexModel); err != nil {
		log.Warnf("unable to create TTL index for %s: %v", shakeCollection, err)
	}

	return &ShakeLog{coll: coll}
}

func (l *ShakeLog) Record(ctx context.Context, sessionID string, sample models.ShakeSample) error {
	doc := bson.M{
		"session_id":     sessionID,
		"participant_id": sample.ParticipantID,
		"intensity":      sample.Intensity,
		"timestamp":      sample.Timestamp,
		"expires_at":     time.Now().Add(sampleTTL),
	}

	_, err := l.coll.InsertOne(ctx, doc)
	return err
}
