package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// IdempotencyKeyHeader carries an explicit client idempotency key for uploads.
const IdempotencyKeyHeader = "Idempotency-Key"

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers stay
// free of business logic; the orchestrator owns every cross-collaborator rule.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, authn fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/documents", authn)
	docs.Get("/", ListDocuments(docSvc))
	docs.Post("/", UploadDocument(docSvc))
	docs.Get("/:id", GetDocument(docSvc))
	docs.Put("/:id", UpdateDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}

// HealthCheck reports readiness: the database must answer a ping.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments returns visible documents with limit & offset.
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// UploadDocument accepts a multipart upload (field name: file). The response
// distinguishes a fresh upload (201) from an idempotent replay (200) and an
// attempt still in flight elsewhere (202).
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		in := service.UploadInput{
			Filename:       fh.Filename,
			ContentType:    contentTypeOf(fh),
			Caller:         middleware.CallerFromCtx(c),
			IdempotencyKey: c.Get(IdempotencyKeyHeader),
			Title:          c.FormValue("title"),
			Author:         c.FormValue("author"),
		}

		res, err := docSvc.Upload(c.UserContext(), f, in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrContentConflict):
				return writeError(c, fiber.StatusConflict, "CONTENT_CONFLICT", "different content was already uploaded under this idempotency key")
			case errors.Is(err, service.ErrInProgress):
				return writeError(c, fiber.StatusAccepted, "UPLOAD_IN_PROGRESS", "a previous attempt is still being processed; retry shortly")
			case errors.Is(err, service.ErrReaderNil):
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
			default:
				return writeError(c, fiber.StatusServiceUnavailable, "COLLABORATOR_UNAVAILABLE", "a dependency failed; retry with the same idempotency key")
			}
		}
		status := fiber.StatusCreated
		if res.Replayed {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(res.Document)
	}
}

// GetDocument returns a document record plus a presigned download URL.
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		acc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(acc)
	}
}

// UpdateDocument replaces content and/or attributes. The If-Match header must
// carry the version the caller last observed.
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		version, err := parseIfMatch(c.Get(fiber.HeaderIfMatch))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "IF_MATCH_REQUIRED", "If-Match header with the last observed version is required")
		}

		in := service.UpdateInput{
			Caller:   middleware.CallerFromCtx(c),
			Title:    c.FormValue("title"),
			Author:   c.FormValue("author"),
			Filename: c.FormValue("filename"),
		}

		var content io.Reader
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			content = f
			if in.Filename == "" {
				in.Filename = fh.Filename
			}
			in.ContentType = contentTypeOf(fh)
		}

		updated, err := docSvc.Update(c.UserContext(), id, version, content, in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			case errors.Is(err, service.ErrVersionConflict):
				return writeError(c, fiber.StatusConflict, "VERSION_CONFLICT", "document was modified; re-read and retry")
			default:
				return writeError(c, fiber.StatusServiceUnavailable, "COLLABORATOR_UNAVAILABLE", "a dependency failed; retry with the same version")
			}
		}
		return c.JSON(updated)
	}
}

// DeleteDocument removes a document; repeated deletes report not found.
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusServiceUnavailable, "COLLABORATOR_UNAVAILABLE", "a dependency failed; retry the delete")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func contentTypeOf(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// parseIfMatch accepts both a bare version and an entity-tag style quoted one.
func parseIfMatch(h string) (int64, error) {
	h = strings.TrimSpace(h)
	h = strings.Trim(h, `"`)
	if h == "" {
		return 0, errors.New("missing If-Match")
	}
	return strconv.ParseInt(h, 10, 64)
}
