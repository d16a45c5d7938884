package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"docflow/backend/internal/document"
)

// wherePrefix marks query parameters that filter documents by field, e.g.
// ?where.author.name=ann. Repeating a parameter matches any of its values.
const wherePrefix = "where."

func documentQuery(c echo.Context) (document.Query, error) {
	var q document.Query
	params := c.QueryParams()

	for _, name := range []string{"limit", "offset"} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%s must be a non-negative integer", name)
		}
		if name == "limit" {
			q.Limit = n
		} else {
			q.Offset = n
		}
	}

	var filters []document.Filter
	for key, values := range params {
		field, ok := strings.CutPrefix(key, wherePrefix)
		if !ok || field == "" {
			continue
		}
		if len(values) == 1 {
			filters = append(filters, document.Eq(field, values[0]))
			continue
		}
		vs := make([]any, len(values))
		for i, v := range values {
			vs[i] = v
		}
		filters = append(filters, document.In(field, vs...))
	}
	if len(filters) > 0 {
		q.Filter = document.And(filters...)
	}
	return q, nil
}

// documentBody decodes the JSON object in the request body. c.Bind is not used
// because it copies path parameters into map destinations.
func documentBody(c echo.Context) (map[string]any, error) {
	var data map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

// ListDocuments returns a page of a collection
// (GET /api/v1/collections/:collection/documents)
func (s *Server) ListDocuments(c echo.Context) error {
	q, err := documentQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := s.svc.ListDocuments(c.Request().Context(), actor(c), c.Param("collection"), q)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetDocument returns one document
// (GET /api/v1/collections/:collection/documents/:id)
func (s *Server) GetDocument(c echo.Context) error {
	doc, err := s.svc.GetDocument(c.Request().Context(), actor(c), c.Param("collection"), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// CreateDocument stores a document and runs the collection's workflow hooks
// (POST /api/v1/collections/:collection/documents)
func (s *Server) CreateDocument(c echo.Context) error {
	data, err := documentBody(c)
	if err != nil {
		return badRequest(c, "invalid request body")
	}
	doc, err := s.svc.CreateDocument(c.Request().Context(), actor(c), c.Param("collection"), data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// UpdateDocument merges fields into a document and runs the workflow hooks
// (PATCH /api/v1/collections/:collection/documents/:id)
func (s *Server) UpdateDocument(c echo.Context) error {
	data, err := documentBody(c)
	if err != nil {
		return badRequest(c, "invalid request body")
	}
	doc, err := s.svc.UpdateDocument(c.Request().Context(), actor(c), c.Param("collection"), c.Param("id"), data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document
// (DELETE /api/v1/collections/:collection/documents/:id)
func (s *Server) DeleteDocument(c echo.Context) error {
	if err := s.svc.DeleteDocument(c.Request().Context(), actor(c), c.Param("collection"), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
