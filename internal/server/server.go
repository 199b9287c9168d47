package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrKekPlag/serv2/internal/domain"
	"github.com/MrKekPlag/serv2/internal/engine"
	"github.com/MrKekPlag/serv2/internal/store"
	"github.com/MrKekPlag/serv2/internal/users"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Users    *users.Store
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"project p-17: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the project tracking API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	router.Use(newAuthMiddleware(basePath, cfg.Auth))

	hcfg := huma.DefaultConfig("Serv2 API", "1.0.0")
	hcfg.OpenAPIPath = "" // served by registerOpenAPI below
	hcfg.DocsPath = ""    // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, cfg.Users, cfg.Auth)
	registerProjects(group, cfg.Engine)
	registerProjectUpdates(group, cfg.Engine)
	registerFiles(group, cfg.Engine)
	registerStatuses(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": ve.Field})
	}
	var ce engine.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, users.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, users.ErrExists) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	if errors.Is(err, users.ErrInvalidCredentials) {
		return newAPIError(http.StatusForbidden, "invalid_credentials", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, us *users.Store, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := us.Authenticate(input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				// The web client treats an unknown user as a form error.
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "cannot find user", nil)
			}
			return nil, handleError(err)
		}
		token, err := IssueToken(authCfg, u, time.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{AccessToken: token, Role: u.Role, FirstName: u.FirstName, LastName: u.LastName}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "register-user",
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Summary:     "Register a user",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := us.Register(input.Body.FirstName, input.Body.LastName, input.Body.Username, input.Body.Password, input.Body.Role)
		if err != nil {
			if errors.Is(err, users.ErrExists) {
				return nil, handleError(err)
			}
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		token, err := IssueToken(authCfg, u, time.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{AccessToken: token, Role: u.Role, FirstName: u.FirstName, LastName: u.LastName}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/auth/delete",
		Summary:     "Delete a user",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body DeleteUserRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		if err := requireRole(ctx, "admin"); err != nil {
			return nil, err
		}
		if err := us.Delete(input.Body.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "User deleted successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/auth/users",
		Summary:     "List user display names",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []UserSummary `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		list := us.List()
		out := make([]UserSummary, 0, len(list))
		for _, u := range list {
			out = append(out, UserSummary{FirstName: u.FirstName, LastName: u.LastName})
		}
		return &struct {
			Body []UserSummary `json:"body"`
		}{Body: out}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	listOp := func(id, routePath, tag string) {
		huma.Register(api, huma.Operation{
			OperationID: id,
			Method:      http.MethodGet,
			Path:        routePath,
			Summary:     "List " + tag + " projects",
		}, func(ctx context.Context, _ *struct{}) (*struct {
			Body []domain.Project `json:"body"`
		}, error) {
			projects, err := e.ListProjects(ctx, tag)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body []domain.Project `json:"body"`
			}{Body: projects}, nil
		})
	}
	listOp("list-projects", "/projects", "projects")
	listOp("list-generation-projects", "/projects/generation", "generation")
	listOp("list-realization-projects", "/projects/realization", "realization")

	huma.Register(api, huma.Operation{
		OperationID: "list-all-projects",
		Method:      http.MethodGet,
		Path:        "/projects/all",
		Summary:     "List projects across all categories",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		projects, err := e.ListAllProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			Category:     input.Body.Type,
			ID:           input.Body.ID,
			Name:         input.Body.Name,
			Employees:    input.Body.Employees,
			Goals:        input.Body.Goals,
			Dependencies: input.Body.Dependencies,
			StartDate:    input.Body.StartDate,
			EndDate:      input.Body.EndDate,
			Deadline:     input.Body.Deadline,
			ActorID:      actor.Username,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Type string `query:"type"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, input.Type, input.ID, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Project deleted successfully"}}, nil
	})
}

func registerProjectUpdates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "update-goal-status",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/status",
		Summary:     "Update a goal's status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body GoalStatusRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UpdateGoalStatus(ctx, input.Body.Type, input.ID, input.Body.GoalName, input.Body.Status, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Goal status updated successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project-rating",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/rating",
		Summary:     "Update a project rating",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body RatingRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UpdateRating(ctx, input.Body.Type, input.ID, input.Body.RatingType, input.Body.Rating, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Project rating updated successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-completion-date",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/completion-date",
		Summary:     "Set the final completion date",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body CompletionDateRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UpdateCompletionDate(ctx, input.Body.Type, input.ID, input.Body.Date, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Completion date updated successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "select-goal",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/goal",
		Summary:     "Select a goal",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body SelectGoalRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SelectGoal(ctx, input.Body.Type, input.ID, input.Body.GoalName, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Goal updated successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transfer-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/transfer",
		Summary:     "Transfer a project to one employee",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body TransferRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.TransferEmployee(ctx, input.ID, input.Body.NewEmployee, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Project transferred successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-employee",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/add-employee",
		Summary:     "Add an employee to a project",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body AddEmployeeRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.AddEmployee(ctx, input.ID, input.Body.NewEmployee, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Employee added successfully"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-employee",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/remove-employee",
		Summary:     "Remove an employee from a project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body RemoveEmployeeRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveEmployee(ctx, input.ID, input.Body.EmployeeToRemove, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Employee removed successfully"}}, nil
	})
}

func registerFiles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-project-file",
		Method:      http.MethodPost,
		Path:        "/createProjectFile",
		Summary:     "Ensure a category's backing collection exists",
	}, func(ctx context.Context, input *struct {
		Body CreateFileRequest `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.EnsureCategoryFile(input.Body.Type); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "File created successfully"}}, nil
	})
}

func registerStatuses(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-statuses",
		Method:      http.MethodGet,
		Path:        "/statuses.json",
		Summary:     "Status catalog",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Status `json:"body"`
	}, error) {
		statuses, err := e.ListStatuses(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Status `json:"body"`
		}{Body: statuses}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-statuses",
		Method:      http.MethodPatch,
		Path:        "/statuses",
		Summary:     "Replace the status catalog",
	}, func(ctx context.Context, input *struct {
		Body []domain.Status `json:"body"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ReplaceStatuses(ctx, input.Body, actor.Username); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Statuses updated successfully"}}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join("/", basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	public := map[string]bool{
		path.Join("/", basePath, "health"):        true,
		path.Join("/", basePath, "auth/login"):    true,
		path.Join("/", basePath, "auth/register"): true,
		path.Join("/", basePath, "statuses.json"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if public[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", basePath, "openapi.json")
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Serv2 API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}
