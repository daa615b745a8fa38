// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateVectorStore creates an empty vector store.
func (c *Client) CreateVectorStore(ctx context.Context, name string) (*VectorStore, error) {
	var vs VectorStore
	if err := c.tp.do(ctx, http.MethodPost, "/vector_stores", nil, map[string]string{"name": name}, &vs); err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	return &vs, nil
}

// GetVectorStore fetches a vector store by id.
func (c *Client) GetVectorStore(ctx context.Context, id string) (*VectorStore, error) {
	var vs VectorStore
	if err := c.tp.do(ctx, http.MethodGet, "/vector_stores/"+url.PathEscape(id), nil, nil, &vs); err != nil {
		return nil, fmt.Errorf("get vector store %s: %w", id, err)
	}
	return &vs, nil
}

// ListVectorStoreFiles returns every file attached to a vector store.
func (c *Client) ListVectorStoreFiles(ctx context.Context, id string) ([]VectorStoreFile, error) {
	q := url.Values{}
	var out []VectorStoreFile
	for {
		var page listResponse[VectorStoreFile]
		if err := c.tp.do(ctx, http.MethodGet, vectorStorePath(id, "files"), q, nil, &page); err != nil {
			return nil, fmt.Errorf("list vector store files: %w", err)
		}
		out = append(out, page.Data...)
		if !page.HasMore || page.LastID == "" {
			return out, nil
		}
		q.Set("after", page.LastID)
	}
}

// AddVectorStoreFile attaches an uploaded file to a vector store.
func (c *Client) AddVectorStoreFile(ctx context.Context, id, fileID string) (*VectorStoreFile, error) {
	var f VectorStoreFile
	if err := c.tp.do(ctx, http.MethodPost, vectorStorePath(id, "files"), nil, map[string]string{"file_id": fileID}, &f); err != nil {
		return nil, fmt.Errorf("add vector store file: %w", err)
	}
	return &f, nil
}

// DeleteVectorStoreFile detaches a file from a vector store. The file itself
// is kept.
func (c *Client) DeleteVectorStoreFile(ctx context.Context, id, fileID string) error {
	var status deletionStatus
	if err := c.tp.do(ctx, http.MethodDelete, vectorStorePath(id, "files", fileID), nil, nil, &status); err != nil {
		return fmt.Errorf("delete vector store file: %w", err)
	}
	return nil
}

func vectorStorePath(id string, parts ...string) string {
	p := "/vector_stores/" + url.PathEscape(id)
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}
