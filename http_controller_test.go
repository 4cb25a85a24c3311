package contacts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	contacts "github.com/goliatone/go-contacts"
	"github.com/goliatone/go-contacts/middleware/bearer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app    *fiber.App
	repo   contacts.RepositoryManager
	auther *contacts.Auther
	mailer *chanMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := setupTestDB(t)
	repo := contacts.NewRepositoryManager(db)
	mailer := newChanMailer()

	auther := contacts.NewAuthenticator(repo, newTestConfig()).
		WithMailer(mailer)

	app := contacts.NewServer()

	protected := bearer.New(bearer.Config{
		Validator:  auther,
		Resolver:   auther,
		ContextKey: contacts.ContextKey,
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return contacts.ErrUnauthorized
		},
	})

	users := &contacts.UserController{
		Repo:    repo,
		Auther:  auther,
		Avatars: contacts.NewLocalAvatarStore(t.TempDir(), "/avatars"),
	}

	contactCtrl := &contacts.ContactController{
		Repo: repo,
	}

	contacts.RegisterRoutes(app, users, contactCtrl, protected)

	return &testServer{
		app:    app,
		repo:   repo,
		auther: auther,
		mailer: mailer,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	decoded := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return resp, decoded
}

func (s *testServer) doList(t *testing.T, path, token string) (*http.Response, []map[string]any) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	records := []map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &records))

	return resp, records
}

// registerAndLogin walks the whole onboarding path and returns a live
// bearer token.
func (s *testServer) registerAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	resp, _ := s.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
		"email":    email,
		"password": password,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	receiveLink(t, s.mailer)

	user, err := s.repo.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)

	resp, _ = s.do(t, fiber.MethodGet, "/api/users/verify/"+user.VerificationToken, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := s.do(t, fiber.MethodPost, "/api/users/login", "", fiber.Map{
		"email":    email,
		"password": password,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	return token
}

func TestUserLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("register returns the public profile", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
			"email":    "ada@example.com",
			"password": "password123",
		})

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, contacts.SubscriptionStarter, body["subscription"])
		assert.Contains(t, body["avatar_url"], "gravatar.com")
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "token")

		receiveLink(t, srv.mailer)
	})

	t.Run("duplicate email renders 409", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
			"email":    "ada@example.com",
			"password": "password123",
		})

		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Email already in use", body["message"])
	})

	t.Run("invalid payload renders 400", func(t *testing.T) {
		resp, _ := srv.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
			"email":    "not-an-email",
			"password": "password123",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp, _ = srv.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
			"email":    "short@example.com",
			"password": "tiny",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("login before verification renders the generic 401", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/users/login", "", fiber.Map{
			"email":    "ada@example.com",
			"password": "password123",
		})

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Email or password invalide", body["message"])
	})

	t.Run("verification link flips the account live", func(t *testing.T) {
		user, err := srv.repo.Users().GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)

		resp, body := srv.do(t, fiber.MethodGet, "/api/users/verify/"+user.VerificationToken, "", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Verification successful", body["message"])

		// Replay renders 404
		resp, body = srv.do(t, fiber.MethodGet, "/api/users/verify/"+user.VerificationToken, "", nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "User not found", body["message"])
	})

	t.Run("current and logout close the loop", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/users/login", "", fiber.Map{
			"email":    "ada@example.com",
			"password": "password123",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		token := body["token"].(string)

		resp, body = srv.do(t, fiber.MethodGet, "/api/users/current", token, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, contacts.SubscriptionStarter, body["subscription"])

		resp, body = srv.do(t, fiber.MethodPost, "/api/users/logout", token, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Logout success", body["message"])

		// The token the caller still holds is dead
		resp, body = srv.do(t, fiber.MethodGet, "/api/users/current", token, nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", body["message"])
	})
}

// Unknown email, wrong password, and unverified account must be
// impossible to tell apart from the response alone, or the login route
// becomes an account enumeration oracle.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t)
	srv.registerAndLogin(t, "ada@example.com", "password123")

	resp, _ := srv.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
		"email":    "unverified@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	receiveLink(t, srv.mailer)

	wrongResp, wrongBody := srv.do(t, fiber.MethodPost, "/api/users/login", "", fiber.Map{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})
	unknownResp, unknownBody := srv.do(t, fiber.MethodPost, "/api/users/login", "", fiber.Map{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	unverifiedResp, unverifiedBody := srv.do(t, fiber.MethodPost, "/api/users/login", "", fiber.Map{
		"email":    "unverified@example.com",
		"password": "password123",
	})

	assert.Equal(t, fiber.StatusUnauthorized, wrongResp.StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, unknownResp.StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, unverifiedResp.StatusCode)

	assert.Equal(t, "Email or password invalide", wrongBody["message"])
	assert.Equal(t, wrongBody, unknownBody)
	assert.Equal(t, wrongBody, unverifiedBody)
}

func TestResendVerificationEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, fiber.MethodPost, "/api/users/register", "", fiber.Map{
		"email":    "ada@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	receiveLink(t, srv.mailer)

	t.Run("missing email field renders 400", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/users/verify", "", fiber.Map{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["message"], "missing required field email")
	})

	t.Run("dispatches a fresh link", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/users/verify", "", fiber.Map{
			"email": "ada@example.com",
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Verification email sent", body["message"])
		receiveLink(t, srv.mailer)
	})

	t.Run("verified account renders 400", func(t *testing.T) {
		user, err := srv.repo.Users().GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)

		resp, _ := srv.do(t, fiber.MethodGet, "/api/users/verify/"+user.VerificationToken, "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, body := srv.do(t, fiber.MethodPost, "/api/users/verify", "", fiber.Map{
			"email": "ada@example.com",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Verification has already been passed", body["message"])
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/api/users/current"},
		{fiber.MethodPost, "/api/users/logout"},
		{fiber.MethodGet, "/api/contacts/"},
		{fiber.MethodPost, "/api/contacts/"},
	}

	for _, tt := range paths {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := srv.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Unauthorized", body["message"])
		})
	}
}

func TestContactEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.registerAndLogin(t, "ada@example.com", "password123")

	var contactID string

	t.Run("create", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPost, "/api/contacts/", token, fiber.Map{
			"name":  "Grace Hopper",
			"email": "grace@example.com",
			"phone": "650-253-0000",
		})

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Grace Hopper", body["name"])
		assert.Equal(t, "+16502530000", body["phone"], "phone should be normalized to E.164")

		contactID, _ = body["id"].(string)
		require.NotEmpty(t, contactID)
	})

	t.Run("create with missing fields renders 400", func(t *testing.T) {
		resp, _ := srv.do(t, fiber.MethodPost, "/api/contacts/", token, fiber.Map{
			"name": "No Email",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("create with invalid phone renders 400", func(t *testing.T) {
		resp, _ := srv.do(t, fiber.MethodPost, "/api/contacts/", token, fiber.Map{
			"name":  "Bad Phone",
			"email": "bad@example.com",
			"phone": "123",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		resp, records := srv.doList(t, "/api/contacts/", token)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Len(t, records, 1)
		assert.Equal(t, "Grace Hopper", records[0]["name"])
	})

	t.Run("show", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodGet, "/api/contacts/"+contactID, token, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Grace Hopper", body["name"])
	})

	t.Run("malformed id renders 404", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodGet, "/api/contacts/not-a-uuid", token, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not found", body["message"])
	})

	t.Run("update", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPut, "/api/contacts/"+contactID, token, fiber.Map{
			"name":  "Rear Admiral Hopper",
			"email": "grace@navy.mil",
			"phone": "+16502530000",
		})

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Rear Admiral Hopper", body["name"])
		assert.Equal(t, "grace@navy.mil", body["email"])
	})

	t.Run("favorite toggle", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPatch, "/api/contacts/"+contactID+"/favorite", token, fiber.Map{
			"favorite": true,
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["favorite"])

		resp, body = srv.do(t, fiber.MethodPatch, "/api/contacts/"+contactID+"/favorite", token, fiber.Map{
			"favorite": false,
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["favorite"])
	})

	t.Run("favorite without the field renders 400", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodPatch, "/api/contacts/"+contactID+"/favorite", token, fiber.Map{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "missing field favorite", body["message"])
	})

	t.Run("delete", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodDelete, "/api/contacts/"+contactID, token, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Delete success", body["message"])

		resp, body = srv.do(t, fiber.MethodGet, "/api/contacts/"+contactID, token, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not found", body["message"])
	})
}

func TestContactOwnerIsolation(t *testing.T) {
	srv := newTestServer(t)

	adaToken := srv.registerAndLogin(t, "ada@example.com", "password123")
	graceToken := srv.registerAndLogin(t, "grace@example.com", "password123")

	resp, body := srv.do(t, fiber.MethodPost, "/api/contacts/", adaToken, fiber.Map{
		"name":  "Ada's Friend",
		"email": "friend@example.com",
		"phone": "650-253-0000",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	contactID := body["id"].(string)

	t.Run("other user's list excludes the record", func(t *testing.T) {
		resp, records := srv.doList(t, "/api/contacts/", graceToken)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, records)
	})

	t.Run("single record routes render 404 for non-owners", func(t *testing.T) {
		resp, body := srv.do(t, fiber.MethodGet, "/api/contacts/"+contactID, graceToken, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not found", body["message"])

		resp, _ = srv.do(t, fiber.MethodPut, "/api/contacts/"+contactID, graceToken, fiber.Map{
			"name":  "Hijacked",
			"email": "evil@example.com",
			"phone": "650-253-0000",
		})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		resp, _ = srv.do(t, fiber.MethodDelete, "/api/contacts/"+contactID, graceToken, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		// Still intact for the owner
		resp, body = srv.do(t, fiber.MethodGet, "/api/contacts/"+contactID, adaToken, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Ada's Friend", body["name"])
	})
}

func TestContactListPagination(t *testing.T) {
	srv := newTestServer(t)
	token := srv.registerAndLogin(t, "ada@example.com", "password123")

	for i := 0; i < 12; i++ {
		resp, _ := srv.do(t, fiber.MethodPost, "/api/contacts/", token, fiber.Map{
			"name":  fmt.Sprintf("contact-%02d", i),
			"email": fmt.Sprintf("contact-%02d@example.com", i),
			"phone": "650-253-0000",
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, records := srv.doList(t, "/api/contacts/", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, records, 10, "default page size")

	resp, records = srv.doList(t, "/api/contacts/?page=2&limit=10", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, records, 2)

	resp, records = srv.doList(t, "/api/contacts/?page=1&limit=5", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, records, 5)
}

func TestUpdateAvatarEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.registerAndLogin(t, "ada@example.com", "password123")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not-really-a-png"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPatch, "/api/users/avatars", &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	avatarURL, ok := body["avatarURL"].(string)
	require.True(t, ok)
	assert.Contains(t, avatarURL, "/avatars/")
	assert.Contains(t, avatarURL, ".png")

	user, err := srv.repo.Users().GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, avatarURL, user.AvatarURL)

	t.Run("missing file renders 400", func(t *testing.T) {
		resp, _ := srv.do(t, fiber.MethodPatch, "/api/users/avatars", token, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestUnknownRouteRenders404Envelope(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, fiber.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found", body["message"])
}
