package repositories

import (
	"fmt"
	"io"

	"flexkazi/freelancer-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// FileRepository stores deliverable attachments in GridFS and hands back
// retrievable references.
type FileRepository struct {
	bucket *gridfs.Bucket
}

func NewFileRepository(db *mongo.Database) (*FileRepository, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create deliverables bucket: %v", err)
	}
	return &FileRepository{bucket: bucket}, nil
}

func (r *FileRepository) Upload(fileName string, source io.Reader) (models.FileReference, error) {
	fileID, err := r.bucket.UploadFromStream(fileName, source)
	if err != nil {
		return models.FileReference{}, fmt.Errorf("failed to upload file %s: %v", fileName, err)
	}

	return models.FileReference{
		FileID:   fileID,
		FileName: fileName,
		URL:      "/api/files/" + fileID.Hex(),
	}, nil
}

func (r *FileRepository) Download(fileID primitive.ObjectID, target io.Writer) error {
	if _, err := r.bucket.DownloadToStream(fileID, target); err != nil {
		return fmt.Errorf("failed to download file %s: %v", fileID.Hex(), err)
	}
	return nil
}
