// Copyright (c) Microsoft. All rights reserved.

package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microsoft/foundry-agents/go/internal/knowledge"
)

type createVectorStoreRequest struct {
	Name string `json:"name"`
}

type addFileRequest struct {
	FileID string `json:"fileId"`
}

type cleanRequest struct {
	RemoveFilesFromDatasets bool `json:"removeFilesFromDatasets"`
}

type uploadRequest struct {
	FilePath string `json:"filePath"`
}

func (s *Server) createVectorStore(c echo.Context) error {
	var req createVectorStoreRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	vs, err := s.deps.VectorStores.Create(c.Request().Context(), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, vs)
}

func (s *Server) getVectorStore(c echo.Context) error {
	vs, err := s.deps.VectorStores.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, vs)
}

func (s *Server) listVectorStoreFiles(c echo.Context) error {
	files, err := s.deps.VectorStores.ListFiles(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"files": files})
}

func (s *Server) addVectorStoreFile(c echo.Context) error {
	var req addFileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.deps.VectorStores.AddFile(c.Request().Context(), c.Param("id"), req.FileID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) cleanVectorStore(c echo.Context) error {
	var req cleanRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.deps.VectorStores.Clean(c.Request().Context(), c.Param("id"), req.RemoveFilesFromDatasets); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// initializeVectorStores handles POST /vector-stores/initialize. A body
// naming a store initializes that store; an empty body initializes every
// enabled store of the agent configuration.
func (s *Server) initializeVectorStores(c echo.Context) error {
	var req knowledge.InitializeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()

	if req.VectorStoreID != "" || req.VectorStoreName != "" {
		res, err := s.deps.VectorStores.Initialize(ctx, req)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"initializedStores": []knowledge.InitializationResult{*res}})
	}

	results := []knowledge.InitializationResult{}
	if s.deps.AgentConfig != nil {
		all, err := s.deps.VectorStores.InitializeAll(ctx, s.deps.AgentConfig.EnabledVectorStores())
		if err != nil {
			return writeError(c, err)
		}
		results = append(results, all...)
	}
	return c.JSON(http.StatusOK, map[string]any{"initializedStores": results})
}

func (s *Server) listFiles(c echo.Context) error {
	files, err := s.deps.Datasets.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"files": files})
}

func (s *Server) getFile(c echo.Context) error {
	f, err := s.deps.Datasets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (s *Server) uploadFile(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	f, err := s.deps.Datasets.Upload(c.Request().Context(), req.FilePath)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (s *Server) deleteFile(c echo.Context) error {
	if err := s.deps.Datasets.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
