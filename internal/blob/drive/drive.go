// Package drive implements the attachment store on Google Drive. Each logical
// bucket maps to a Drive folder; references are Drive file ids.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"syndic/internal/blob"
	"syndic/internal/log"
)

type Store struct {
	svc     *gdrive.Service
	folders map[blob.Bucket]string
}

var _ blob.Store = (*Store)(nil)

// NewFromEnv creates a Drive-backed store using service account credentials.
// Required: DRIVE_RECEIPTS_FOLDER_ID and DRIVE_JUSTIFICATIONS_FOLDER_ID.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Store, error) {
	receipts := strings.TrimSpace(os.Getenv("DRIVE_RECEIPTS_FOLDER_ID"))
	justifs := strings.TrimSpace(os.Getenv("DRIVE_JUSTIFICATIONS_FOLDER_ID"))
	if receipts == "" || justifs == "" {
		return nil, errors.New("missing DRIVE_RECEIPTS_FOLDER_ID or DRIVE_JUSTIFICATIONS_FOLDER_ID")
	}

	svc, err := newDriveService(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}

	return &Store{
		svc: svc,
		folders: map[blob.Bucket]string{
			blob.BucketReceipts:       receipts,
			blob.BucketJustifications: justifs,
		},
	}, nil
}

func newDriveService(ctx context.Context) (*gdrive.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gdrive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

func (s *Store) folder(bucket blob.Bucket) (string, error) {
	id, ok := s.folders[bucket]
	if !ok || id == "" {
		return "", fmt.Errorf("no folder configured for bucket %q", bucket)
	}
	return id, nil
}

// Upload writes the object into the bucket's folder. Drive allows duplicate
// names, so the collision contract is enforced with an existence query first;
// the timestamped paths make an actual hit unlikely.
func (s *Store) Upload(ctx context.Context, bucket blob.Bucket, path string, data []byte, contentType string) (blob.Ref, error) {
	folderID, err := s.folder(bucket)
	if err != nil {
		return "", &blob.StorageError{Op: "upload", Path: path, Err: err}
	}

	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", strings.ReplaceAll(path, "'", "\\'"), folderID)
	existing, err := s.svc.Files.List().Q(query).PageSize(1).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", &blob.StorageError{Op: "upload", Path: path, Err: fmt.Errorf("existence check: %w", err)}
	}
	if len(existing.Files) > 0 {
		return "", &blob.StorageError{Op: "upload", Path: path, Err: blob.ErrPathExists}
	}

	file := &gdrive.File{Name: path, Parents: []string{folderID}}
	created, err := s.svc.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", &blob.StorageError{Op: "upload", Path: path, Err: err}
	}

	slog.InfoContext(ctx, "Attachment uploaded to Drive",
		log.FieldComponent, log.ComponentBlob,
		log.FieldOperation, log.OpUpload,
		log.FieldBucket, string(bucket),
		"path", path,
		"file_id", created.Id,
		"size", len(data))

	return blob.Ref(created.Id), nil
}

// PublicURL derives the direct-download URL from the file id. No network
// call; the link resolves once Upload has confirmed.
func (s *Store) PublicURL(ref blob.Ref) string {
	return "https://drive.google.com/uc?export=download&id=" + string(ref)
}

func (s *Store) Remove(ctx context.Context, ref blob.Ref) error {
	if err := s.svc.Files.Delete(string(ref)).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return &blob.StorageError{Op: "remove", Path: string(ref), Err: blob.ErrObjectMissing}
		}
		return &blob.StorageError{Op: "remove", Path: string(ref), Err: err}
	}
	return nil
}
