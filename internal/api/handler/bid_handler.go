package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltmatch/voltmatch-be/internal/api/dto"
	"github.com/voltmatch/voltmatch-be/internal/api/service"
	"github.com/voltmatch/voltmatch-be/internal/auth"
)

// SubmitBid handles POST /api/v1/jobs/:job_id/bids
// Records a PENDING bid from the authenticated electrician
func (h *BidHandler) SubmitBid(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	bid, err := h.service.SubmitBid(c.Request.Context(), service.SubmitBidInput{
		JobID:        jobID,
		BidderID:     auth.UserID(c),
		AmountCents:  req.AmountCents,
		DurationDays: req.DurationDays,
		Message:      req.Message,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.BidFromModel(bid))
}

// AcceptBid handles POST /api/v1/bids/:bid_id/accept
// Single-winner decision point for a job's bid ledger
func (h *BidHandler) AcceptBid(c *gin.Context) {
	bidID := c.Param("bid_id")
	if _, err := uuid.Parse(bidID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "bid_id must be a valid UUID",
		})
		return
	}

	bid, err := h.service.AcceptBid(c.Request.Context(), bidID, auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Bid accepted",
		slog.String("bid_id", bid.BidID),
		slog.String("job_id", bid.JobID),
	)

	c.JSON(http.StatusOK, dto.BidFromModel(bid))
}

// WithdrawBid handles DELETE /api/v1/bids/:bid_id
// Retracts a still-pending bid
func (h *BidHandler) WithdrawBid(c *gin.Context) {
	bidID := c.Param("bid_id")
	if _, err := uuid.Parse(bidID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "bid_id must be a valid UUID",
		})
		return
	}

	bid, err := h.service.WithdrawBid(c.Request.Context(), bidID, auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.BidFromModel(bid))
}

// ListBids handles GET /api/v1/jobs/:job_id/bids
func (h *BidHandler) ListBids(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	bids, err := h.service.ListBids(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bidResponse := make([]dto.BidDTO, len(bids))
	for i := range bids {
		bidResponse[i] = dto.BidFromModel(&bids[i])
	}

	c.JSON(http.StatusOK, dto.ListBidsResponse{Bids: bidResponse})
}

// GetBid handles GET /api/v1/bids/:bid_id
func (h *BidHandler) GetBid(c *gin.Context) {
	bidID := c.Param("bid_id")
	if _, err := uuid.Parse(bidID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "bid_id must be a valid UUID",
		})
		return
	}

	bid, err := h.service.GetBid(c.Request.Context(), bidID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.BidFromModel(bid))
}
