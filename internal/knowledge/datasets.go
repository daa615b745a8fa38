// Copyright (c) Microsoft. All rights reserved.

// Package knowledge manages the files and vector stores backing file search.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/foundry"
)

// ErrInvalidPath is returned for file paths that leave the files directory.
var ErrInvalidPath = fmt.Errorf("%w: file path must be relative to the files directory", af.ErrValidation)

// Datasets manages uploaded files. Uploads are read from a local directory.
type Datasets struct {
	client *foundry.Client
	dir    string
}

// NewDatasets returns a service uploading files found under dir.
func NewDatasets(client *foundry.Client, dir string) *Datasets {
	return &Datasets{client: client, dir: dir}
}

func (d *Datasets) List(ctx context.Context) ([]foundry.File, error) {
	return d.client.ListFiles(ctx)
}

func (d *Datasets) Get(ctx context.Context, fileID string) (*foundry.File, error) {
	if err := requireID("File ID", fileID); err != nil {
		return nil, err
	}
	return d.client.GetFile(ctx, fileID)
}

// Upload uploads the file at filePath, relative to the files directory.
func (d *Datasets) Upload(ctx context.Context, filePath string) (*foundry.File, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("%w: File path cannot be null or empty.", af.ErrValidation)
	}
	clean := filepath.Clean(filepath.FromSlash(filePath))
	if !filepath.IsLocal(clean) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, filePath)
	}

	f, err := os.Open(filepath.Join(d.dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", af.ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	return d.client.UploadFile(ctx, filepath.Base(clean), f)
}

func (d *Datasets) Delete(ctx context.Context, fileID string) error {
	if err := requireID("File ID", fileID); err != nil {
		return err
	}
	return d.client.DeleteFile(ctx, fileID)
}

func requireID(what, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s cannot be null or empty.", af.ErrValidation, what)
	}
	return nil
}
