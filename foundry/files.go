// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// PurposeAgents marks files uploaded for agent tools such as file search.
const PurposeAgents = "assistants"

// UploadFile uploads content under fileName for use by agents.
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader) (*File, error) {
	var f File
	fields := map[string]string{"purpose": PurposeAgents}
	if err := c.tp.upload(ctx, "/files", fields, fileName, content, &f); err != nil {
		return nil, fmt.Errorf("upload file %s: %w", fileName, err)
	}
	return &f, nil
}

// ListFiles returns the files of the project.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var page listResponse[File]
	if err := c.tp.do(ctx, http.MethodGet, "/files", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return page.Data, nil
}

// GetFile fetches file metadata.
func (c *Client) GetFile(ctx context.Context, id string) (*File, error) {
	var f File
	if err := c.tp.do(ctx, http.MethodGet, "/files/"+url.PathEscape(id), nil, nil, &f); err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return &f, nil
}

// DeleteFile removes a file from the project.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	var status deletionStatus
	if err := c.tp.do(ctx, http.MethodDelete, "/files/"+url.PathEscape(id), nil, nil, &status); err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	return nil
}
