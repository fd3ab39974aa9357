package starter

import (
	"encoding/json"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
)

// FormPayload is implemented by every form action payload. Validate
// runs the ozzo rules for the payload.
type FormPayload interface {
	Validate() error
}

// ActionResult is the JSON shape every form action responds with: an
// error or a success message, plus echoed form fields so the client can
// re-fill inputs. Fields are flattened into the top-level object.
type ActionResult struct {
	Error   string
	Success string
	Fields  map[string]any
}

func (r ActionResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Success != "" {
		out["success"] = r.Success
	}
	return json.Marshal(out)
}

// ActionError builds a failed ActionResult, optionally echoing fields
func ActionError(msg string, fields ...map[string]any) ActionResult {
	r := ActionResult{Error: msg}
	if len(fields) > 0 {
		r.Fields = fields[0]
	}
	return r
}

// ActionSuccess builds a successful ActionResult
func ActionSuccess(msg string, fields ...map[string]any) ActionResult {
	r := ActionResult{Success: msg}
	if len(fields) > 0 {
		r.Fields = fields[0]
	}
	return r
}

// CurrentUserResolver resolves the signed-in user for a request.
// RouteAuthenticator satisfies it.
type CurrentUserResolver interface {
	CurrentUser(ctx router.Context) (*User, error)
}

// Validated wraps a form action with the parse-then-validate pipeline:
// bind the payload, run its rules, and only then invoke the action.
// Validation failures answer with the first rule message and never
// reach the action.
func Validated[T FormPayload](action func(ctx router.Context, payload T) error) router.HandlerFunc {
	return func(ctx router.Context) error {
		var payload T

		if err := ctx.Bind(&payload); err != nil {
			return ctx.JSON(http.StatusBadRequest, ActionError("Failed to parse form"))
		}

		if err := payload.Validate(); err != nil {
			return ctx.JSON(http.StatusBadRequest, ActionError(FirstValidationMessage(err)))
		}

		return action(ctx, payload)
	}
}

// ValidatedWithUser is Validated plus a signed-in user requirement: the
// session is resolved to a stored user before the action runs. Requests
// without a valid session are rejected before validation output could
// leak anything.
func ValidatedWithUser[T FormPayload](resolver CurrentUserResolver, action func(ctx router.Context, payload T, user *User) error) router.HandlerFunc {
	return func(ctx router.Context) error {
		user, err := resolver.CurrentUser(ctx)
		if err != nil || user == nil {
			return ctx.JSON(http.StatusUnauthorized, ActionError("User is not authenticated."))
		}

		var payload T

		if err := ctx.Bind(&payload); err != nil {
			return ctx.JSON(http.StatusBadRequest, ActionError("Failed to parse form"))
		}

		if err := payload.Validate(); err != nil {
			return ctx.JSON(http.StatusBadRequest, ActionError(FirstValidationMessage(err)))
		}

		return action(ctx, payload, user)
	}
}

// FirstValidationMessage picks one stable message out of an ozzo
// validation error. Rule errors come back as a map keyed by field, so
// we sort the keys to keep the response deterministic.
func FirstValidationMessage(err error) string {
	if err == nil {
		return ""
	}

	var verrs validation.Errors
	if !asValidationErrors(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys[0] + ": " + verrs[keys[0]].Error()
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field keyed message map for clients that render per-field errors.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if !asValidationErrors(err, &verrs) {
		out["form"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		out[field] = ferr.Error()
	}
	return out
}

func asValidationErrors(err error, target *validation.Errors) bool {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}
