package handlers

import (
	"context"
	"net/http"
	"time"

	"soberPathAPI/middleware"
	"soberPathAPI/services"
)

type LevelHandler struct {
	levelService *services.LevelService
}

func NewLevelHandler(levelService *services.LevelService) *LevelHandler {
	return &LevelHandler{
		levelService: levelService,
	}
}

func (h *LevelHandler) GetLevels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	levels, err := h.levelService.GetLevels(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch levels")
		return
	}

	respondWithJSON(w, http.StatusOK, levels)
}
