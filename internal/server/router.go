package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/auth"
	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"github.com/MapleGroveLabs/moodnest/internal/intake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDContextKey = "moodnest_user_id"

var (
	errMissingSessionValidator  = errors.New("session validator dependency required")
	errMissingIntakeService     = errors.New("intake service dependency required")
	errMissingSessionCookieName = errors.New("session cookie name required when minting sessions")
)

// SessionValidator validates the session cookie on incoming requests.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// IdentityRecorder tracks which users have been seen.
type IdentityRecorder interface {
	Touch(claims auth.SessionClaims) (string, error)
}

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	SessionValidator SessionValidator
	IntakeService    *intake.Service
	Identities       IdentityRecorder
	// Sessions, when set, enables POST /auth/session for first-party
	// session minting. Deployments behind an external identity provider
	// leave it nil and only validate cookies.
	Sessions          *auth.TokenIssuer
	SessionCookieName string
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin router serving the check-in API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionValidator == nil {
		return nil, errMissingSessionValidator
	}
	if deps.IntakeService == nil {
		return nil, errMissingIntakeService
	}
	if deps.Sessions != nil && deps.SessionCookieName == "" {
		return nil, errMissingSessionCookieName
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:      deps.SessionValidator,
		intakeService: deps.IntakeService,
		identities:    deps.Identities,
		issuer:        deps.Sessions,
		cookieName:    deps.SessionCookieName,
		logger:        logger,
	}

	// The agent's connectivity prober targets this endpoint.
	router.GET("/healthz", handler.handleHealth)
	router.HEAD("/healthz", handler.handleHealth)

	if deps.Sessions != nil {
		router.POST("/auth/session", handler.handleMintSession)
	}

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/api/checkins", handler.handleSubmitCheckin)
	protected.GET("/api/checkins", handler.handleListCheckins)

	return router, nil
}

type httpHandler struct {
	sessions      SessionValidator
	intakeService *intake.Service
	identities    IdentityRecorder
	issuer        *auth.TokenIssuer
	cookieName    string
	logger        *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

type sessionRequestPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type sessionResponsePayload struct {
	ExpiresIn int64 `json:"expiresIn"`
}

func (h *httpHandler) handleMintSession(c *gin.Context) {
	var request sessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	role := request.Role
	if role == "" {
		role = auth.RoleChild
	}

	token, expiresIn, err := h.issuer.IssueSessionToken(request.UserID, request.DisplayName, role)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_session_request"})
		return
	}

	c.SetCookie(h.cookieName, token, int(expiresIn), "/", "", false, true)
	c.JSON(http.StatusCreated, sessionResponsePayload{ExpiresIn: expiresIn})
}

type checkinRequestPayload struct {
	Emotion    string `json:"emotion"`
	Mode       string `json:"mode"`
	Note       string `json:"note"`
	DrawingRef string `json:"drawingRef"`
	DateISO    string `json:"dateISO"`
	ClientID   string `json:"clientId"`
}

type checkinResponsePayload struct {
	ClientID  string `json:"clientId"`
	Duplicate bool   `json:"duplicate"`
}

func (h *httpHandler) handleSubmitCheckin(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request checkinRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record := checkin.Record{
		Emotion:    checkin.Emotion(request.Emotion),
		Mode:       checkin.Mode(request.Mode),
		Note:       request.Note,
		DrawingRef: request.DrawingRef,
		DateISO:    request.DateISO,
	}

	result, err := h.intakeService.Apply(c.Request.Context(), userID, intake.Submission{
		Record:   record,
		ClientID: request.ClientID,
	})
	if errors.Is(err, intake.ErrInvalidSubmission) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_checkin"})
		return
	}
	if err != nil {
		h.logger.Error("failed to persist check-in", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkin_failed"})
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, checkinResponsePayload{
		ClientID:  result.ClientID,
		Duplicate: result.Duplicate,
	})
}

type checkinListItem struct {
	ClientID   string `json:"clientId"`
	Emotion    string `json:"emotion"`
	Mode       string `json:"mode"`
	Note       string `json:"note,omitempty"`
	DrawingRef string `json:"drawingRef,omitempty"`
	DateISO    string `json:"dateISO"`
}

func (h *httpHandler) handleListCheckins(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rows, err := h.intakeService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list check-ins", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}

	items := make([]checkinListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, checkinListItem{
			ClientID:   row.ClientID,
			Emotion:    row.Emotion,
			Mode:       row.Mode,
			Note:       row.Note,
			DrawingRef: row.DrawingRef,
			DateISO:    row.RecordedAtISO,
		})
	}
	c.JSON(http.StatusOK, gin.H{"checkins": items})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID := claims.UserID
	if h.identities != nil {
		resolved, err := h.identities.Touch(claims)
		if err != nil {
			h.logger.Warn("identity tracking failed", zap.Error(err))
		} else {
			userID = resolved
		}
	}

	c.Set(userIDContextKey, userID)
	c.Next()
}
