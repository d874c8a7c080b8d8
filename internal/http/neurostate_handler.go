package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neurostate/internal/domain"
	"neurostate/internal/profile"
	"neurostate/internal/repository"
	"neurostate/internal/service"
)

// NeurostateHandler expone ingesta, evaluación y lectura de estado por usuario.
type NeurostateHandler struct {
	logger   *zap.Logger
	svc      *service.NeurostateService
	catalog  *profile.Catalog
	profiles repository.ProfileRepository
	limiter  service.AssessRateLimiter
}

// NewNeurostateHandler crea el handler. limiter puede ser nil.
func NewNeurostateHandler(
	logger *zap.Logger,
	svc *service.NeurostateService,
	catalog *profile.Catalog,
	profiles repository.ProfileRepository,
	limiter service.AssessRateLimiter,
) *NeurostateHandler {
	if catalog == nil {
		catalog = profile.DefaultCatalog()
	}
	if profiles == nil {
		profiles = repository.NewMemoryProfileRepository()
	}
	return &NeurostateHandler{
		logger:   logger,
		svc:      svc,
		catalog:  catalog,
		profiles: profiles,
		limiter:  limiter,
	}
}

type profileRequest struct {
	Segment   string            `json:"segment" binding:"required"`
	Overrides profile.Overrides `json:"overrides"`
}

// PutProfile maneja PUT /users/:id/profile.
func (h *NeurostateHandler) PutProfile(c *gin.Context) {
	userID := c.Param("id")
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	prof, err := h.buildProfile(req.Segment, req.Overrides)
	if err != nil {
		h.writeError(c, err)
		return
	}
	rec := repository.ProfileRecord{
		UserID:    userID,
		Segment:   prof.Segment,
		Overrides: req.Overrides,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.profiles.Upsert(c.Request.Context(), rec); err != nil {
		h.logger.Error("upsert profile failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": prof})
}

// PostObservations maneja POST /users/:id/observations. Ingiere en orden y se detiene en
// la primera observación inválida.
func (h *NeurostateHandler) PostObservations(c *gin.Context) {
	userID := c.Param("id")
	var req struct {
		Observations []domain.Observation `json:"observations" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid observations request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	for i, obs := range req.Observations {
		if err := h.svc.Ingest(userID, obs); err != nil {
			h.logger.Warn("observation rejected",
				zap.String("user_id", userID),
				zap.Int("index", i),
				zap.Error(err),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "accepted": i})
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(req.Observations)})
}

// PostAction maneja POST /users/:id/actions.
func (h *NeurostateHandler) PostAction(c *gin.Context) {
	userID := c.Param("id")
	var ev domain.ActionEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.logger.Warn("invalid action request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	saved, err := h.svc.RecordAction(userID, ev)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"action": saved})
}

type assessmentRequest struct {
	Segment    string             `json:"segment"`
	Overrides  *profile.Overrides `json:"overrides"`
	CrisisFlag *bool              `json:"crisis_flag"`
}

// PostAssessment maneja POST /users/:id/assessments. Sin segment en el body se usa el
// perfil guardado.
func (h *NeurostateHandler) PostAssessment(c *gin.Context) {
	userID := c.Param("id")
	var req assessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid assessment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	// en crisis no se limita ni se exige perfil: la suspensión siempre sale
	crisis := req.CrisisFlag != nil && *req.CrisisFlag
	if !crisis && h.limiter != nil && !h.limiter.Allow(userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many assessments"})
		return
	}

	var (
		prof domain.SegmentProfile
		err  error
	)
	if req.Segment != "" {
		var ov profile.Overrides
		if req.Overrides != nil {
			ov = *req.Overrides
		}
		prof, err = h.buildProfile(req.Segment, ov)
	} else {
		prof, err = h.storedProfile(c, userID)
	}
	if err != nil {
		if !crisis {
			h.writeError(c, err)
			return
		}
		h.logger.Warn("profile unavailable during crisis",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		prof = domain.SegmentProfile{}
	}

	out, err := h.svc.Assess(c.Request.Context(), service.AssessRequest{
		UserID:     userID,
		Profile:    prof,
		CrisisFlag: req.CrisisFlag,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": out})
}

// GetLatestSnapshot maneja GET /users/:id/snapshots/latest.
func (h *NeurostateHandler) GetLatestSnapshot(c *gin.Context) {
	snap, err := h.svc.LatestSnapshot(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snap})
}

// ListSnapshots maneja GET /users/:id/snapshots?limit=N.
func (h *NeurostateHandler) ListSnapshots(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	snaps := h.svc.SnapshotHistory(c.Param("id"), limit)
	if snaps == nil {
		snaps = []domain.NeurostateSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// ListCycles maneja GET /users/:id/cycles?active=true.
func (h *NeurostateHandler) ListCycles(c *gin.Context) {
	userID := c.Param("id")
	var cycles []domain.DetectedCycle
	if c.Query("active") == "true" {
		cycles = h.svc.ActiveCycles(userID)
	} else {
		cycles = h.svc.CycleHistory(userID)
	}
	if cycles == nil {
		cycles = []domain.DetectedCycle{}
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

func (h *NeurostateHandler) buildProfile(segment string, ov profile.Overrides) (domain.SegmentProfile, error) {
	seg, err := domain.ParseSegment(segment)
	if err != nil {
		return domain.SegmentProfile{}, err
	}
	return h.catalog.New(seg, ov)
}

func (h *NeurostateHandler) storedProfile(c *gin.Context, userID string) (domain.SegmentProfile, error) {
	rec, err := h.profiles.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		return domain.SegmentProfile{}, err
	}
	return h.catalog.New(rec.Segment, rec.Overrides)
}

func (h *NeurostateHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidObservation),
		errors.Is(err, domain.ErrInvalidActionEvent),
		errors.Is(err, domain.ErrMissingCrisisFlag):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnknownSegment),
		errors.Is(err, domain.ErrProfileInconsistency):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error("neurostate request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
