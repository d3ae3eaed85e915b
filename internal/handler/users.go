package handler

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
	"github.com/iliyamo/event-ticket-reservation/internal/utils"
)

const maxUsernameLen = 64

// UserHandler serves sign-up, login and the caller's own profile.
type UserHandler struct {
	Users     *service.UserService
	JWTSecret string
	TTLMin    int
}

// NewUserHandler panics on a nil service.
func NewUserHandler(users *service.UserService, jwtSecret string, ttlMin int) *UserHandler {
	if users == nil {
		panic("nil service passed to NewUserHandler")
	}
	return &UserHandler{Users: users, JWTSecret: jwtSecret, TTLMin: ttlMin}
}

// ----- DTOs -----

type usernameReq struct {
	Username string `json:"username"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	History  []uuid.UUID `json:"history"`
}

type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

func toUserPart(u *model.User) userPart {
	history := u.History
	if history == nil {
		history = []uuid.UUID{}
	}
	return userPart{ID: u.ID, Username: u.Username, History: history}
}

func (h *UserHandler) bindUsername(c echo.Context) (string, error) {
	var req usernameReq
	if err := c.Bind(&req); err != nil {
		return "", badRequest(c, "invalid body")
	}
	name := strings.TrimSpace(req.Username)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLen {
		return "", badRequest(c, "username must be 1 to 64 characters")
	}
	return name, nil
}

func (h *UserHandler) respondWithToken(c echo.Context, status int, u *model.User) error {
	access, err := utils.NewAccessToken(h.JWTSecret, u.ID, u.Username, h.TTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, authResp{
		User:   toUserPart(u),
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// SignUp handles POST /v1/users: create the user and return an access token.
func (h *UserHandler) SignUp(c echo.Context) error {
	name, err := h.bindUsername(c)
	if name == "" {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.SignUp(ctx, name)
	if err != nil {
		return writeError(c, err)
	}
	return h.respondWithToken(c, http.StatusCreated, u)
}

// Login handles POST /v1/auth/login: look the user up by name and return a
// fresh access token together with the stored history.
func (h *UserHandler) Login(c echo.Context) error {
	name, err := h.bindUsername(c)
	if name == "" {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.Login(ctx, name)
	if err != nil {
		return writeError(c, err)
	}
	return h.respondWithToken(c, http.StatusOK, u)
}

// Me handles GET /v1/me.
func (h *UserHandler) Me(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.FindByID(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// PruneHistory handles POST /v1/me/history/prune: drop cancelled ids from
// the caller's history and return what remains.
func (h *UserHandler) PruneHistory(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	kept, err := h.Users.PruneHistory(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	if kept == nil {
		kept = []uuid.UUID{}
	}
	return c.JSON(http.StatusOK, echo.Map{"history": kept})
}
