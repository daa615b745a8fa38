// Copyright (c) Microsoft. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/foundry"
	"github.com/microsoft/foundry-agents/go/internal/config"
)

// initConcurrency bounds the vector stores initialized at once.
const initConcurrency = 4

// InitializeRequest describes a vector store to create or reuse and the
// files to load into it.
type InitializeRequest struct {
	VectorStoreName        string   `json:"vectorStoreName,omitempty"`
	VectorStoreID          string   `json:"vectorStoreId,omitempty"`
	VectorStoreDescription string   `json:"vectorStoreDescription,omitempty"`
	Files                  []string `json:"files,omitempty"`

	// CleanVectorStore detaches the current files of a reused store first.
	CleanVectorStore bool `json:"cleanVectorStore,omitempty"`

	// CleanVectorStoreAndRemoveFilesFromDatasets also deletes the detached
	// files when CleanVectorStore is set.
	CleanVectorStoreAndRemoveFilesFromDatasets bool `json:"cleanVectorStoreAndRemoveFilesFromDatasets,omitempty"`
}

// FileResult is a file loaded into a vector store.
type FileResult struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// InitializationResult is the outcome of initializing one vector store.
type InitializationResult struct {
	VectorStoreName string       `json:"vectorStoreName"`
	VectorStoreID   string       `json:"vectorStoreId"`
	Files           []FileResult `json:"files"`
}

// VectorStores manages vector stores.
type VectorStores struct {
	client   *foundry.Client
	datasets *Datasets
	logger   *slog.Logger
}

// NewVectorStores returns a service loading files through datasets.
func NewVectorStores(client *foundry.Client, datasets *Datasets, logger *slog.Logger) *VectorStores {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStores{client: client, datasets: datasets, logger: logger}
}

func (v *VectorStores) Create(ctx context.Context, name string) (*foundry.VectorStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: Name is required.", af.ErrValidation)
	}
	return v.client.CreateVectorStore(ctx, name)
}

func (v *VectorStores) Get(ctx context.Context, id string) (*foundry.VectorStore, error) {
	if err := requireID("Vector store ID", id); err != nil {
		return nil, err
	}
	return v.client.GetVectorStore(ctx, id)
}

func (v *VectorStores) ListFiles(ctx context.Context, id string) ([]foundry.VectorStoreFile, error) {
	if err := requireID("Vector store ID", id); err != nil {
		return nil, err
	}
	return v.client.ListVectorStoreFiles(ctx, id)
}

func (v *VectorStores) AddFile(ctx context.Context, id, fileID string) error {
	if err := requireID("Vector store ID", id); err != nil {
		return err
	}
	if err := requireID("FileId", fileID); err != nil {
		return err
	}
	_, err := v.client.AddVectorStoreFile(ctx, id, fileID)
	return err
}

// Clean detaches every file from the vector store. With removeFromDatasets
// the files are deleted as well.
func (v *VectorStores) Clean(ctx context.Context, id string, removeFromDatasets bool) error {
	files, err := v.ListFiles(ctx, id)
	if err != nil {
		return err
	}
	for _, f := range files {
		if strings.TrimSpace(f.ID) == "" {
			continue
		}
		if err := v.client.DeleteVectorStoreFile(ctx, id, f.ID); err != nil {
			return err
		}
		if removeFromDatasets {
			if err := v.client.DeleteFile(ctx, f.ID); err != nil {
				return err
			}
		}
	}
	v.logger.InfoContext(ctx, "vector store cleaned", "vector_store_id", id, "files", len(files), "removed_from_datasets", removeFromDatasets)
	return nil
}

// Initialize reuses the store named by VectorStoreID, cleaning it when asked,
// or creates one named VectorStoreName. The listed files are then uploaded
// and attached in order.
func (v *VectorStores) Initialize(ctx context.Context, req InitializeRequest) (*InitializationResult, error) {
	var (
		vs  *foundry.VectorStore
		err error
	)
	if strings.TrimSpace(req.VectorStoreID) != "" {
		if vs, err = v.client.GetVectorStore(ctx, req.VectorStoreID); err != nil {
			return nil, err
		}
		if req.CleanVectorStore {
			if err := v.Clean(ctx, vs.ID, req.CleanVectorStoreAndRemoveFilesFromDatasets); err != nil {
				return nil, err
			}
		}
	} else {
		if strings.TrimSpace(req.VectorStoreName) == "" {
			return nil, fmt.Errorf("%w: VectorStoreName is required when creating a new vector store.", af.ErrValidation)
		}
		if vs, err = v.client.CreateVectorStore(ctx, req.VectorStoreName); err != nil {
			return nil, err
		}
	}

	result := &InitializationResult{VectorStoreName: vs.Name, VectorStoreID: vs.ID, Files: []FileResult{}}
	for _, path := range req.Files {
		file, err := v.datasets.Upload(ctx, path)
		if err != nil {
			return nil, err
		}
		if _, err := v.client.AddVectorStoreFile(ctx, vs.ID, file.ID); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, FileResult{FileID: file.ID, FileName: filepath.Base(path)})
	}
	v.logger.InfoContext(ctx, "vector store initialized", "vector_store_id", vs.ID, "name", vs.Name, "files", len(result.Files))
	return result, nil
}

// InitializeAll initializes every enabled vector store of the configuration.
// Results keep the configuration order.
func (v *VectorStores) InitializeAll(ctx context.Context, stores []config.VectorStoreSettings) ([]InitializationResult, error) {
	var enabled []config.VectorStoreSettings
	for _, s := range stores {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}

	results := make([]InitializationResult, len(enabled))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(initConcurrency)
	for i, s := range enabled {
		g.Go(func() error {
			res, err := v.Initialize(ctx, requestFromSettings(s))
			if err != nil {
				return fmt.Errorf("vector store %q: %w", s.VectorStoreName, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func requestFromSettings(s config.VectorStoreSettings) InitializeRequest {
	req := InitializeRequest{
		VectorStoreName:        s.VectorStoreName,
		VectorStoreID:          s.VectorStoreID,
		VectorStoreDescription: s.VectorStoreDescription,
		CleanVectorStore:       s.CleanVectorStore,
	}
	req.CleanVectorStoreAndRemoveFilesFromDatasets = s.CleanVectorStoreAndRemoveFilesFromDatasets
	for _, f := range s.Files {
		req.Files = append(req.Files, f.FilePath)
	}
	return req
}
