package uploadjobs

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightline/portal-services/internal/database"
)

// PersistedUpload is the Mongo representation of one relayed file upload.
type PersistedUpload struct {
	JobID       string    `bson:"jobId" json:"jobId"`
	UploadPath  string    `bson:"uploadPath" json:"uploadPath"`
	Filename    string    `bson:"filename" json:"filename"`
	ObjectURL   string    `bson:"objectUrl" json:"objectUrl"`
	Size        int64     `bson:"size" json:"size"`
	ContentType string    `bson:"contentType" json:"contentType"`
	UploadedAt  time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

// Save persists (upsert) upload metadata, keyed by job and filename.
// If mongoURI is empty the function is a no-op.
func Save(ctx context.Context, mongoURI, databaseName string, pu *PersistedUpload) error {
	if mongoURI == "" {
		return nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	if pu.UploadedAt.IsZero() {
		pu.UploadedAt = time.Now().UTC()
	}
	col := client.Database(databaseName).Collection("upload_jobs")
	filter := bson.M{"jobId": pu.JobID, "filename": pu.Filename}
	opts := options.Update().SetUpsert(true)
	if _, err := col.UpdateOne(ctx, filter, bson.M{"$set": pu}, opts); err != nil {
		return fmt.Errorf("save upload job: %w", err)
	}
	return nil
}

// LoadByJob fetches the persisted uploads for a job. Returns nil when none exist.
func LoadByJob(ctx context.Context, mongoURI, databaseName, jobID string) ([]PersistedUpload, error) {
	if mongoURI == "" {
		return nil, nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	col := client.Database(databaseName).Collection("upload_jobs")
	cur, err := col.Find(ctx, bson.M{"jobId": jobID})
	if err != nil {
		return nil, fmt.Errorf("load upload jobs: %w", err)
	}
	defer cur.Close(ctx)
	var out []PersistedUpload
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
