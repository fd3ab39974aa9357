package starter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// RegisterAccountRoutes mounts the account form actions and the small
// JSON API on the given router.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	app.Post("/sign-up", Validated(controller.SignUp)).SetName("sign-up.post")
	app.Post("/sign-in", Validated(controller.SignIn)).SetName("sign-in.post")
	app.Post("/sign-out", controller.SignOut).SetName("sign-out.post")

	app.Post("/account", ValidatedWithUser(controller.Auther, controller.UpdateAccount)).
		SetName("account.update")
	app.Post("/account/password", ValidatedWithUser(controller.Auther, controller.UpdatePassword)).
		SetName("account.password")
	app.Post("/account/delete", ValidatedWithUser(controller.Auther, controller.DeleteAccount)).
		SetName("account.delete")

	app.Get("/api/user", controller.CurrentUserShow).SetName("api.user")
	app.Get("/api/activity", controller.ActivityFeed).SetName("api.activity")
}

type AccountController struct {
	Debug   bool
	Logger  Logger
	Repo    RepositoryManager
	Auther  *RouteAuthenticator
	Billing BillingClient
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in account controller...")
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerBilling(billing BillingClient) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Billing = billing
		return c
	}
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

// SignInPayload is the credentials sign-in form. Redirect and PriceID
// carry the checkout handoff: a pricing page submits redirect=checkout
// plus the selected price so a fresh session lands straight in Stripe.
type SignInPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Redirect string `form:"redirect" json:"redirect"`
	PriceID  string `form:"priceId" json:"priceId"`
}

// Validate will run validation rules
func (r SignInPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) SignIn(ctx router.Context, payload SignInPayload) error {
	if a.Debug {
		fmt.Println("======= SIGN IN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("======================")
	}

	if err := a.Auther.Login(ctx, payload.Email, payload.Password); err != nil {
		return ctx.JSON(http.StatusUnauthorized, ActionError(
			"Invalid email or password. Please try again.",
			map[string]any{"email": payload.Email, "password": payload.Password},
		))
	}

	if payload.Redirect == "checkout" && payload.PriceID != "" {
		user, err := a.Repo.Users().GetByEmail(ctx.Context(), payload.Email)
		if err == nil {
			return a.redirectToCheckout(ctx, user, payload.PriceID)
		}
		a.Logger.Error("sign-in checkout handoff failed to load user", "error", err)
	}

	return ctx.Redirect("/dashboard", router.StatusSeeOther)
}

// SignUpPayload mirrors SignInPayload including the checkout handoff.
type SignUpPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Redirect string `form:"redirect" json:"redirect"`
	PriceID  string `form:"priceId" json:"priceId"`
}

// Validate will run validation rules
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) SignUp(ctx router.Context, payload SignUpPayload) error {
	users := a.Repo.Users()

	existing, err := users.GetByEmail(ctx.Context(), payload.Email)
	if err != nil && !repository.IsRecordNotFound(err) {
		a.Logger.Error("sign-up failed to check email", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to create user. Please try again.",
			map[string]any{"email": payload.Email, "password": payload.Password},
		))
	}
	if existing != nil {
		return ctx.JSON(http.StatusConflict, ActionError(
			"An account with this email already exists.",
			map[string]any{"email": payload.Email, "password": payload.Password},
		))
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		a.Logger.Error("sign-up failed to hash password", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to create user. Please try again.",
			map[string]any{"email": payload.Email, "password": payload.Password},
		))
	}

	user := &User{
		Email:        payload.Email,
		PasswordHash: hash,
		Role:         RoleMember,
	}

	// Deterministic id derived from the email; a tombstoned row can
	// still own that id, so a collision falls back to a random one.
	if id, err := hashid.NewUUID(user.Email); err == nil {
		user.ID = id
	}

	created, err := users.Register(ctx.Context(), user)
	if err != nil {
		user.ID = uuid.Nil
		created, err = users.Register(ctx.Context(), user)
	}
	if err != nil {
		a.Logger.Error("sign-up failed to create user", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to create user. Please try again.",
			map[string]any{"email": payload.Email, "password": payload.Password},
		))
	}

	if a.Debug {
		fmt.Println("======= SIGN UP ======")
		fmt.Println(print.MaybePrettyJSON(created))
		fmt.Println("======================")
	}

	if err := RecordActivity(clientIPContext(ctx), a.Repo.ActivityLogs(), created.ID, ActivitySignUp); err != nil {
		a.Logger.Error("sign-up failed to record activity", "error", err)
	}

	if err := a.Auther.Login(ctx, payload.Email, payload.Password); err != nil {
		a.Logger.Error("sign-up auto sign-in failed", "error", err)
		return ctx.JSON(http.StatusOK, ActionError(
			"Account created successfully. Please sign in.",
			map[string]any{"email": "", "password": ""},
		))
	}

	if payload.Redirect == "checkout" && payload.PriceID != "" {
		return a.redirectToCheckout(ctx, created, payload.PriceID)
	}

	return ctx.Redirect("/dashboard", router.StatusSeeOther)
}

// SignOut records the activity while the session is still readable,
// then drops the cookie.
func (a *AccountController) SignOut(ctx router.Context) error {
	if user, err := a.Auther.CurrentUser(ctx); err == nil && user != nil {
		if err := RecordActivity(clientIPContext(ctx), a.Repo.ActivityLogs(), user.ID, ActivitySignOut); err != nil {
			a.Logger.Error("sign-out failed to record activity", "error", err)
		}
	}

	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusSeeOther)
}

// UpdatePasswordPayload is the change-password form.
type UpdatePasswordPayload struct {
	CurrentPassword string `form:"currentPassword" json:"currentPassword"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

// Validate will run validation rules
func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) UpdatePassword(ctx router.Context, payload UpdatePasswordPayload, user *User) error {
	echo := map[string]any{
		"currentPassword": payload.CurrentPassword,
		"newPassword":     payload.NewPassword,
		"confirmPassword": payload.ConfirmPassword,
	}

	if !user.HasPassword() {
		return ctx.JSON(http.StatusBadRequest, ActionError(
			"Cannot update password for OAuth accounts.", echo,
		))
	}

	if err := ComparePasswordAndHash(payload.CurrentPassword, user.PasswordHash); err != nil {
		return ctx.JSON(http.StatusBadRequest, ActionError(
			"Current password is incorrect.", echo,
		))
	}

	if payload.CurrentPassword == payload.NewPassword {
		return ctx.JSON(http.StatusBadRequest, ActionError(
			"New password must be different from the current password.", echo,
		))
	}

	if payload.ConfirmPassword != payload.NewPassword {
		return ctx.JSON(http.StatusBadRequest, ActionError(
			"New password and confirmation password do not match.", echo,
		))
	}

	hash, err := HashPassword(payload.NewPassword)
	if err != nil {
		a.Logger.Error("update password failed to hash", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to update password. Please try again.", echo,
		))
	}

	// The write and the audit entry are independent, run them together.
	var wg sync.WaitGroup
	var updateErr, logErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		updateErr = a.Repo.Users().UpdatePassword(ctx.Context(), user.ID, hash)
	}()
	go func() {
		defer wg.Done()
		logErr = RecordActivity(clientIPContext(ctx), a.Repo.ActivityLogs(), user.ID, ActivityUpdatePassword)
	}()
	wg.Wait()

	if updateErr != nil {
		a.Logger.Error("update password failed", "error", updateErr)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to update password. Please try again.", echo,
		))
	}

	if logErr != nil {
		a.Logger.Error("update password failed to record activity", "error", logErr)
	}

	return ctx.JSON(http.StatusOK, ActionSuccess("Password updated successfully."))
}

// UpdateAccountPayload is the profile form. Email changes are not part
// of this surface.
type UpdateAccountPayload struct {
	Name string `form:"name" json:"name"`
}

// Validate will run validation rules
func (r UpdateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
	)
}

func (a *AccountController) UpdateAccount(ctx router.Context, payload UpdateAccountPayload, user *User) error {
	user.Name = payload.Name

	var wg sync.WaitGroup
	var updateErr, logErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, updateErr = a.Repo.Users().Update(ctx.Context(), user)
	}()
	go func() {
		defer wg.Done()
		logErr = RecordActivity(clientIPContext(ctx), a.Repo.ActivityLogs(), user.ID, ActivityUpdateAccount)
	}()
	wg.Wait()

	if updateErr != nil {
		a.Logger.Error("update account failed", "error", updateErr)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to update account. Please try again.",
			map[string]any{"name": payload.Name},
		))
	}

	if logErr != nil {
		a.Logger.Error("update account failed to record activity", "error", logErr)
	}

	return ctx.JSON(http.StatusOK, ActionSuccess(
		"Account updated successfully.",
		map[string]any{"name": payload.Name},
	))
}

// DeleteAccountPayload is the account deletion confirmation form.
type DeleteAccountPayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r DeleteAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// DeleteAccount verifies the password, cancels any live subscription,
// records the deletion, and tombstones the row. The steps after
// verification are not compensated: a failure mid-sequence leaves the
// earlier steps done and reports a generic error.
func (a *AccountController) DeleteAccount(ctx router.Context, payload DeleteAccountPayload, user *User) error {
	echo := map[string]any{"password": payload.Password}

	if !user.HasPassword() {
		return ctx.JSON(http.StatusBadRequest, ActionError(
			"Cannot delete OAuth accounts with password verification.", echo,
		))
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		return ctx.JSON(http.StatusBadRequest, ActionError(
			"Incorrect password. Account deletion failed.", echo,
		))
	}

	if user.StripeSubscriptionID != "" && a.Billing != nil {
		if err := a.Billing.CancelSubscription(ctx.Context(), user.StripeSubscriptionID); err != nil {
			a.Logger.Error("delete account failed to cancel subscription", "error", err)
			return ctx.JSON(http.StatusInternalServerError, ActionError(
				"Failed to delete account. Please try again.", echo,
			))
		}
	}

	if err := RecordActivity(clientIPContext(ctx), a.Repo.ActivityLogs(), user.ID, ActivityDeleteAccount); err != nil {
		a.Logger.Error("delete account failed to record activity", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to delete account. Please try again.", echo,
		))
	}

	if err := a.Repo.Users().SoftDelete(ctx.Context(), user); err != nil {
		a.Logger.Error("delete account failed to soft delete", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError(
			"Failed to delete account. Please try again.", echo,
		))
	}

	a.Auther.Logout(ctx)
	return ctx.Redirect("/sign-in", router.StatusSeeOther)
}

// CurrentUserShow answers with the signed-in user or JSON null, so
// clients can poll session state without handling error statuses.
func (a *AccountController) CurrentUserShow(ctx router.Context) error {
	user, err := a.Auther.CurrentUser(ctx)
	if err != nil || user == nil {
		return ctx.JSON(http.StatusOK, nil)
	}
	return ctx.JSON(http.StatusOK, user)
}

// maxActivityFeedLimit caps the page size a client can request.
const maxActivityFeedLimit = 100

// ActivityFeed lists the signed-in user's most recent activity entries.
func (a *AccountController) ActivityFeed(ctx router.Context) error {
	user, err := a.Auther.CurrentUser(ctx)
	if err != nil || user == nil {
		return ctx.JSON(http.StatusUnauthorized, ActionError("User is not authenticated."))
	}

	limit := 10
	if q := ctx.Query("limit", ""); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxActivityFeedLimit {
		limit = maxActivityFeedLimit
	}

	logs, err := a.Repo.ActivityLogs().ListByUser(ctx.Context(), user.ID, limit)
	if err != nil {
		a.Logger.Error("activity feed query failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ActionError("Failed to load activity."))
	}

	return ctx.JSON(http.StatusOK, logs)
}

func (a *AccountController) redirectToCheckout(ctx router.Context, user *User, priceID string) error {
	if a.Billing == nil {
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	url, err := a.Billing.CreateCheckoutSession(ctx.Context(), user, priceID)
	if err != nil {
		a.Logger.Error("checkout session failed", "error", err)
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	return ctx.Redirect(url, router.StatusSeeOther)
}

// clientIPContext tags the request context with the caller address so
// activity entries can store it.
func clientIPContext(ctx router.Context) context.Context {
	return WithClientIP(ctx.Context(), ctx.Header("X-Forwarded-For"))
}
