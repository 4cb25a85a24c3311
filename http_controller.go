package contacts

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// RegisterRoutes mounts the public and protected API surface. protected
// is the bearer middleware; registration, login, and verification
// establish identity and stay outside it.
func RegisterRoutes(app *fiber.App, users *UserController, contactList *ContactController, protected fiber.Handler) {
	api := app.Group("/api")

	u := api.Group("/users")
	u.Post("/register", users.Register)
	u.Post("/login", users.Login)
	u.Get("/verify/:verificationToken", users.VerifyToken)
	u.Post("/verify", users.ResendVerification)
	u.Get("/current", protected, users.Current)
	u.Post("/logout", protected, users.Logout)
	u.Patch("/avatars", protected, users.UpdateAvatar)

	c := api.Group("/contacts", protected)
	c.Get("/", contactList.List)
	c.Post("/", contactList.Create)
	c.Get("/:id", contactList.Show)
	c.Put("/:id", contactList.Update)
	c.Delete("/:id", contactList.Delete)
	c.Patch("/:id/favorite", contactList.SetFavorite)

	app.Use(NotFoundHandler)
}

// UserController serves the credential lifecycle endpoints
type UserController struct {
	Debug   bool
	Logger  Logger
	Repo    RepositoryManager
	Auther  *Auther
	Avatars AvatarStore
}

// RegisterRequest payload
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Subscription string `json:"subscription"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Subscription, validation.In(
			SubscriptionStarter,
			SubscriptionPro,
			SubscriptionBusiness,
		)),
	))
}

func (a *UserController) Register(ctx *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	user, err := a.Auther.Register(ctx.UserContext(), RegisterMessage{
		Email:        payload.Email,
		Password:     payload.Password,
		Subscription: payload.Subscription,
	})
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(user.Profile())
}

// LoginRequest payload. Login carries no schema validation on purpose:
// missing or malformed credentials fail the credential check itself, and
// every failure renders the same generic 401.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *UserController) Login(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return ErrInvalidCredentials
	}

	token, err := a.Auther.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"token": token,
	})
}

func (a *UserController) Current(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"email":        user.Email,
		"subscription": user.Subscription,
	})
}

func (a *UserController) Logout(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	if err := a.Auther.Logout(ctx.UserContext(), user); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"message": "Logout success",
	})
}

func (a *UserController) VerifyToken(ctx *fiber.Ctx) error {
	token := ctx.Params("verificationToken")

	if _, err := a.Auther.Verify(ctx.UserContext(), token); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"message": "Verification successful",
	})
}

// ResendVerificationRequest payload
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ResendVerificationRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("missing required field email"), is.Email),
	))
}

func (a *UserController) ResendVerification(ctx *fiber.Ctx) error {
	payload := new(ResendVerificationRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if err := a.Auther.ResendVerification(ctx.UserContext(), payload.Email); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"message": "Verification email sent",
	})
}

// UpdateAvatar accepts a multipart upload, hands the bytes to the avatar
// collaborator, and records the resulting URL on the user record.
func (a *UserController) UpdateAvatar(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	header, err := ctx.FormFile("avatar")
	if err != nil {
		return goerrors.New("missing avatar file", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	file, err := header.Open()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open uploaded avatar")
	}
	defer file.Close()

	url, err := a.Avatars.Save(ctx.UserContext(), user.ID.String(), header.Filename, file)
	if err != nil {
		return err
	}

	if err := a.Repo.Users().UpdateAvatarURL(ctx.UserContext(), user.ID, url); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store avatar URL")
	}

	return ctx.JSON(fiber.Map{
		"avatarURL": url,
	})
}

// ContactController serves the owner-scoped contact endpoints. Every
// handler resolves the owner from the authenticated identity; no route
// accepts an owner from the payload.
type ContactController struct {
	Logger Logger
	Repo   RepositoryManager
}

// ContactRequest payload for create and full update
type ContactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Favorite bool   `json:"favorite"`
}

// Validate will run validation rules
func (r ContactRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Phone, validation.Required),
	))
}

// FavoriteRequest payload. The pointer distinguishes a missing field from
// an explicit false.
type FavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

func (a *ContactController) List(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", DefaultPageSize)

	records, err := a.Repo.Contacts().ListByOwner(ctx.UserContext(), user.ID, page, limit)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list contacts")
	}

	return ctx.JSON(records)
}

func (a *ContactController) Create(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	payload := new(ContactRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	phone, err := NormalizePhone(payload.Phone)
	if err != nil {
		return err
	}

	record, err := a.Repo.Contacts().CreateOwned(ctx.UserContext(), &Contact{
		OwnerID:  user.ID,
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    phone,
		Favorite: payload.Favorite,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create contact")
	}

	return ctx.Status(fiber.StatusCreated).JSON(record)
}

func (a *ContactController) Show(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	id, err := contactID(ctx)
	if err != nil {
		return err
	}

	record, err := a.Repo.Contacts().GetOwned(ctx.UserContext(), user.ID, id)
	if err != nil {
		return contactLookupError(err)
	}

	return ctx.JSON(record)
}

func (a *ContactController) Update(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	id, err := contactID(ctx)
	if err != nil {
		return err
	}

	payload := new(ContactRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	phone, err := NormalizePhone(payload.Phone)
	if err != nil {
		return err
	}

	record, err := a.Repo.Contacts().UpdateOwned(ctx.UserContext(), &Contact{
		ID:       id,
		OwnerID:  user.ID,
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    phone,
		Favorite: payload.Favorite,
	})
	if err != nil {
		return contactLookupError(err)
	}

	return ctx.JSON(record)
}

func (a *ContactController) Delete(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	id, err := contactID(ctx)
	if err != nil {
		return err
	}

	if err := a.Repo.Contacts().DeleteOwned(ctx.UserContext(), user.ID, id); err != nil {
		return contactLookupError(err)
	}

	return ctx.JSON(fiber.Map{
		"message": "Delete success",
	})
}

func (a *ContactController) SetFavorite(ctx *fiber.Ctx) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	id, err := contactID(ctx)
	if err != nil {
		return err
	}

	payload := new(FavoriteRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if payload.Favorite == nil {
		return goerrors.New("missing field favorite", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	record, err := a.Repo.Contacts().SetFavorite(ctx.UserContext(), user.ID, id, *payload.Favorite)
	if err != nil {
		return contactLookupError(err)
	}

	return ctx.JSON(record)
}

func requireUser(ctx *fiber.Ctx) (*User, error) {
	if user, ok := ctx.Locals(ContextKey).(*User); ok && user != nil {
		return user, nil
	}
	return nil, ErrUnauthorized
}

// contactID parses the :id route parameter. Malformed ids render the same
// 404 as missing records so ids cannot be probed.
func contactID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, ErrContactNotFound
	}
	return id, nil
}

func contactLookupError(err error) error {
	if goerrors.IsNotFound(err) {
		return ErrContactNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "contact lookup failed")
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request payload").
		WithCode(goerrors.CodeBadRequest)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithCode(goerrors.CodeBadRequest)
}
