package api

import (
	"fmt"
	"net/http"
	"strings"

	"verdict/internal/config"
	"verdict/pkg/handlers"
	"verdict/pkg/openapi"
	"verdict/pkg/routes"
)

// buildSpec assembles the OpenAPI document from the route groups that were
// actually mounted, so the served spec never drifts from the mux. Operation
// detail comes from the table in operationDetails; routes without an entry
// still appear with a minimal success response.
func buildSpec(cfg *config.Config, groups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(domainSchemas())

	details := operationDetails()
	for _, group := range groups {
		addGroup(spec, details, "", group)
	}

	return spec
}

// serveSpec serializes the document once and serves the cached bytes.
func serveSpec(doc *openapi.Spec, runtime *Runtime) http.HandlerFunc {
	data, err := openapi.MarshalJSON(doc)
	if err != nil {
		runtime.Logger.Error("marshal openapi spec", "error", err)
		return func(w http.ResponseWriter, r *http.Request) {
			handlers.RespondError(
				w, runtime.Logger,
				http.StatusInternalServerError,
				fmt.Errorf("openapi spec unavailable"),
			)
		}
	}

	return openapi.ServeSpec(data)
}

func addGroup(
	spec *openapi.Spec,
	details map[string]*openapi.Operation,
	parentPrefix string,
	group routes.Group,
) {
	prefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		addOperation(spec, details, group.Tags, route.Method, prefix+route.Pattern)
	}
	for _, child := range group.Children {
		addGroup(spec, details, prefix, child)
	}
}

func addOperation(
	spec *openapi.Spec,
	details map[string]*openapi.Operation,
	tags []string,
	method string,
	pattern string,
) {
	path := specPath(pattern)

	op := details[method+" "+path]
	if op == nil {
		op = &openapi.Operation{
			Responses: map[int]*openapi.Response{
				http.StatusOK: {Description: "Success"},
			},
		}
	}
	op.Tags = tags

	item := spec.Paths[path]
	if item == nil {
		item = &openapi.PathItem{}
		spec.Paths[path] = item
	}

	switch method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPut:
		item.Put = op
	case http.MethodDelete:
		item.Delete = op
	}
}

// specPath rewrites ServeMux wildcard segments into OpenAPI path templates.
func specPath(pattern string) string {
	return strings.ReplaceAll(pattern, "...}", "}")
}

func operationDetails() map[string]*openapi.Operation {
	return map[string]*openapi.Operation{
		"GET /tasks": {
			Summary: "List review tasks",
			Responses: map[int]*openapi.Response{
				http.StatusOK: {
					Description: "Configured tasks",
					Content: map[string]*openapi.MediaType{
						"application/json": {
							Schema: &openapi.Schema{
								Type:  "array",
								Items: openapi.SchemaRef("Task"),
							},
						},
					},
				},
			},
		},
		"GET /tasks/{id}": {
			Summary: "Find a review task",
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Task identifier"),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:       openapi.ResponseJSON("Task definition", "Task"),
				http.StatusNotFound: openapi.ResponseRef("NotFound"),
			},
		},
		"POST /annotations": {
			Summary: "Record a plausibility judgment",
			Description: "Upserts the judgment for the image pair and syncs " +
				"the ledger to remote storage and the local cache. Responds " +
				"201 even when a sync destination failed; check the per-" +
				"destination status fields.",
			RequestBody: openapi.RequestBodyJSON("RecordCommand", true),
			Responses: map[int]*openapi.Response{
				http.StatusCreated:    openapi.ResponseJSON("Recorded judgment with sync status", "RecordResult"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
				http.StatusNotFound:   openapi.ResponseRef("NotFound"),
			},
		},
		"GET /annotations": {
			Summary: "Page through recorded judgments",
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("task", "string", "Task identifier", true),
				openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Substring match on image keys", false),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         openapi.ResponseJSON("Judgments page", "JudgmentPage"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
				http.StatusNotFound:   openapi.ResponseRef("NotFound"),
			},
		},
		"GET /annotations/progress": {
			Summary: "Summarize annotation progress for a task",
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("task", "string", "Task identifier", true),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         openapi.ResponseJSON("Progress counts", "ProgressReport"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
				http.StatusNotFound:   openapi.ResponseRef("NotFound"),
			},
		},
		"GET /annotations/complete": {
			Summary: "Check whether an image set is fully judged",
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("task", "string", "Task identifier", true),
				openapi.QueryParam("original", "string", "Original image reference", true),
				openapi.QueryParam("generated", "string",
					"Expected generated image reference; repeat per candidate", false),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         openapi.ResponseJSON("Completion verdict", "CompletionReport"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
				http.StatusNotFound:   openapi.ResponseRef("NotFound"),
			},
		},
		"GET /imagesets": {
			Summary: "Page through image sets for review",
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("task", "string", "Task identifier", true),
				openapi.QueryParam("pending", "boolean",
					"Only sets with at least one unjudged candidate", false),
				openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Substring match on the original key", false),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         openapi.ResponseJSON("Image sets page", "ImageSetPage"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
				http.StatusNotFound:   openapi.ResponseRef("NotFound"),
			},
		},
		"GET /storage": {
			Summary: "List blobs",
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("prefix", "string", "Key prefix filter", false),
				openapi.QueryParam("marker", "string", "Continuation marker from a prior page", false),
				openapi.QueryParam("max_results", "integer", "Page size cap", false),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         openapi.ResponseJSON("Blob listing", "StorageListing"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
			},
		},
		"GET /storage/{key}": {
			Summary: "Find blob metadata",
			Parameters: []*openapi.Parameter{
				openapi.PathParam("key", "Blob key"),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:       openapi.ResponseJSON("Blob metadata", "StorageObject"),
				http.StatusNotFound: openapi.ResponseRef("NotFound"),
			},
		},
		"PUT /storage/{key}": {
			Summary:     "Upload blob content",
			Description: "Stores the request body under the key, capped at the configured upload size.",
			Parameters: []*openapi.Parameter{
				openapi.PathParam("key", "Blob key"),
			},
			RequestBody: &openapi.RequestBody{
				Required: true,
				Content: map[string]*openapi.MediaType{
					"application/octet-stream": {
						Schema: &openapi.Schema{Type: "string", Format: "binary"},
					},
				},
			},
			Responses: map[int]*openapi.Response{
				http.StatusCreated:    openapi.ResponseJSON("Stored blob metadata", "StorageObject"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
			},
		},
		"GET /storage/sign/{key}": {
			Summary: "Mint a signed download URL",
			Parameters: []*openapi.Parameter{
				openapi.PathParam("key", "Blob key"),
				openapi.QueryParam("ttl", "string",
					"Signing window as a Go duration, e.g. 24h", false),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         openapi.ResponseJSON("Signed URL", "SignedURL"),
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
				http.StatusNotFound:   openapi.ResponseRef("NotFound"),
			},
		},
		"GET /storage/download/{key}": {
			Summary: "Download blob content",
			Parameters: []*openapi.Parameter{
				openapi.PathParam("key", "Blob key"),
			},
			Responses: map[int]*openapi.Response{
				http.StatusOK: {
					Description: "Blob content stream",
					Content: map[string]*openapi.MediaType{
						"application/octet-stream": {
							Schema: &openapi.Schema{Type: "string", Format: "binary"},
						},
					},
				},
				http.StatusNotFound: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func domainSchemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Task": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":               {Type: "string", Example: "bone"},
				"name":             {Type: "string", Example: "Bone Marrow"},
				"sets_file":        {Type: "string", Description: "Image set artifact file name"},
				"originals_prefix": {Type: "string", Description: "Blob prefix holding original images"},
				"generated_prefix": {Type: "string", Description: "Blob prefix holding generated candidates"},
			},
		},
		"Judgment": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"original_key":  {Type: "string", Description: "Canonical key of the original image"},
				"generated_key": {Type: "string", Description: "Canonical key of the generated candidate"},
				"label":         {Type: "string", Enum: []any{"Plausible", "Implausible"}},
				"recorded_at":   {Type: "string", Description: "Judgment date, DD-MM-YYYY", Example: "21-08-2026"},
			},
		},
		"RecordCommand": {
			Type:     "object",
			Required: []string{"task_id", "original_url", "generated_url", "label"},
			Properties: map[string]*openapi.Schema{
				"task_id":       {Type: "string", Example: "bone"},
				"original_url":  {Type: "string", Description: "Original image URL or key"},
				"generated_url": {Type: "string", Description: "Generated candidate URL or key"},
				"label":         {Type: "string", Enum: []any{"Plausible", "Implausible"}},
			},
		},
		"SyncStatus": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"destination": {Type: "string", Enum: []any{"remote", "cache"}},
				"synced":      {Type: "boolean"},
				"error":       {Type: "string"},
			},
		},
		"SyncWarning": {
			Type:        "object",
			Description: "Non-fatal ledger load problem; results may be stale or empty",
			Properties: map[string]*openapi.Schema{
				"op":    {Type: "string", Enum: []any{"download", "decode"}},
				"error": {Type: "string"},
			},
		},
		"RecordResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task":     {Type: "string"},
				"judgment": openapi.SchemaRef("Judgment"),
				"remote":   openapi.SchemaRef("SyncStatus"),
				"cache":    openapi.SchemaRef("SyncStatus"),
				"warning":  openapi.SchemaRef("SyncWarning"),
			},
		},
		"ProgressReport": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task":                  {Type: "string"},
				"annotated":             {Type: "integer", Description: "Originals with at least one judgment"},
				"fully_annotated":       {Type: "integer", Description: "Originals with every candidate judged"},
				"expected_per_original": {Type: "integer"},
				"warning":               openapi.SchemaRef("SyncWarning"),
			},
		},
		"CompletionReport": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task":     {Type: "string"},
				"original": {Type: "string", Description: "Canonical key of the original image"},
				"complete": {Type: "boolean"},
				"warning":  openapi.SchemaRef("SyncWarning"),
			},
		},
		"JudgmentPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task":    {Type: "string"},
				"page":    pageSchema(openapi.SchemaRef("Judgment")),
				"warning": openapi.SchemaRef("SyncWarning"),
			},
		},
		"ImageSet": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"original": {Type: "string", Description: "Viewable URL of the original image"},
				"generated": {
					Type:        "array",
					Description: "Viewable URLs of the generated candidates",
					Items:       &openapi.Schema{Type: "string"},
				},
			},
		},
		"ImageSetPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"task":    {Type: "string"},
				"pending": {Type: "boolean"},
				"page":    pageSchema(openapi.SchemaRef("ImageSet")),
				"warning": openapi.SchemaRef("SyncWarning"),
			},
		},
		"StorageObject": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"key":           {Type: "string"},
				"size":          {Type: "integer"},
				"content_type":  {Type: "string"},
				"last_modified": {Type: "string", Format: "date-time"},
			},
		},
		"StorageListing": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"objects":     {Type: "array", Items: openapi.SchemaRef("StorageObject")},
				"next_marker": {Type: "string", Description: "Marker for the next page, empty when exhausted"},
			},
		},
		"SignedURL": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"url": {Type: "string"},
			},
		},
	}
}

// pageSchema wraps an item schema in the pagination envelope.
func pageSchema(item *openapi.Schema) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: item},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}
