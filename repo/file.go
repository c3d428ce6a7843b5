package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"certhub/config"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type FileRepo interface {
	// Upload stores the file under the named folder and returns a direct
	// download URL.
	Upload(ctx context.Context, folderName, fileName string, data []byte) (string, error)
	Close(ctx context.Context) error
}

type fileRepo struct {
	baseFolderID string
	adminEmail   string

	mu        sync.Mutex
	folderIDs map[string]string

	srv *drive.Service
}

func NewFileRepo(ctx context.Context, cfg config.GoogleDrive) (FileRepo, error) {
	b, err := json.Marshal(cfg.GoogleServiceAccount)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithCredentialsJSON(b))
	if err != nil {
		return nil, err
	}

	return &fileRepo{
		adminEmail:   cfg.AdminEmail,
		baseFolderID: cfg.BaseFolderID,
		folderIDs:    make(map[string]string),
		srv:          srv,
	}, nil
}

func (r *fileRepo) Upload(ctx context.Context, folderName, fileName string, data []byte) (string, error) {
	folderID, err := r.getOrCreateFolder(ctx, folderName)
	if err != nil {
		return "", err
	}

	file, err := r.srv.Files.Create(&drive.File{
		Name:    fileName,
		Parents: []string{folderID},
	}).Media(bytes.NewReader(data)).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	// anyone with the link can fetch, claim and email links depend on it
	if _, err := r.srv.Permissions.Create(file.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do(); err != nil {
		return "", err
	}

	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", file.Id), nil
}

func (r *fileRepo) getOrCreateFolder(ctx context.Context, folderName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.folderIDs[folderName]; ok {
		return id, nil
	}

	list, err := r.srv.Files.List().
		Q(fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
			folderName, r.baseFolderID)).
		Fields("files(id)").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}

	if len(list.Files) > 0 {
		r.folderIDs[folderName] = list.Files[0].Id
		return list.Files[0].Id, nil
	}

	folder, err := r.srv.Files.Create(&drive.File{
		Name:     folderName,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{r.baseFolderID},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	if _, err := r.srv.Permissions.Create(folder.Id, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: r.adminEmail,
	}).Context(ctx).Do(); err != nil {
		return "", err
	}

	r.folderIDs[folderName] = folder.Id

	return folder.Id, nil
}

func (r *fileRepo) Close(_ context.Context) error {
	return nil
}
