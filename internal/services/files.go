package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// FileStore range les fichiers des devoirs remis dans un bucket MinIO
type FileStore struct {
	client *minio.Client
	bucket string
}

func NewFileStore(client *minio.Client, bucket string) *FileStore {
	return &FileStore{client: client, bucket: bucket}
}

// ObjectKey : submissions/<devoir>/<élève>/<uuid>-<nom>
func ObjectKey(assignmentID, userID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "" {
		name = "fichier"
	}
	return fmt.Sprintf("submissions/%s/%s/%s-%s", assignmentID, userID, uuid.NewString(), name)
}

// Upload envoie un fichier de formulaire et renvoie sa clé d'objet
func (s *FileStore) Upload(ctx context.Context, assignmentID, userID string, file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", errors.Wrap(err, "ouverture fichier")
	}
	defer f.Close()

	key := ObjectKey(assignmentID, userID, file.Filename)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, f, file.Size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(err, "envoi MinIO %s", key)
	}
	return key, nil
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}), "suppression MinIO %s", key)
}

// SignedURL donne un lien de lecture temporaire vers un fichier remis
func (s *FileStore) SignedURL(ctx context.Context, key string, duration time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, duration, make(url.Values))
	if err != nil {
		return "", errors.Wrapf(err, "URL signée %s", key)
	}
	return u.String(), nil
}
