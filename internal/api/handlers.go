package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/schema"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// respondError maps domain errors onto HTTP status codes: caller-fault input
// is 400, missing records 404, storage outages 503, everything else 500.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var storageErr *domain.StorageError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &storageErr):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("Request failed")
	}

	c.JSON(status, gin.H{
		"error":          err.Error(),
		"correlation_id": c.GetString("correlation_id"),
	})
}

func parsePatientID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "patient id must be a positive integer",
			"correlation_id": c.GetString("correlation_id"),
		})
		return 0, false
	}
	return id, true
}

// handleCreatePatient creates a patient record.
func (s *Server) handleCreatePatient(c *gin.Context) {
	var input domain.PatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid request body: " + err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	patient, err := s.repo.Create(c.Request.Context(), &input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

// handleListPatients returns a pagination window plus the total count.
func (s *Server) handleListPatients(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		s.respondError(c, domain.NewValidationError("offset", "must be an integer"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil {
		s.respondError(c, domain.NewValidationError("limit", "must be an integer"))
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	patients, err := s.repo.List(c.Request.Context(), offset, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	total, err := s.repo.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patients": patients,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// handleGetPatient returns a single patient by identifier.
func (s *Server) handleGetPatient(c *gin.Context) {
	id, ok := parsePatientID(c)
	if !ok {
		return
	}

	patient, err := s.repo.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// handleUpdatePatient applies a partial update. The body is first decoded as
// a raw key set so unknown field names are rejected before any value binding.
func (s *Server) handleUpdatePatient(c *gin.Context) {
	id, ok := parsePatientID(c)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid request body: " + err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}
	for field := range raw {
		if !schema.IsExternalField(field) {
			s.respondError(c, &domain.UnknownFieldError{Field: field})
			return
		}
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		s.respondError(c, err)
		return
	}
	var update domain.PatientUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid request body: " + err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	patient, err := s.repo.Update(c.Request.Context(), id, &update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// handleDeletePatient removes a patient and its dependent log rows.
func (s *Server) handleDeletePatient(c *gin.Context) {
	id, ok := parsePatientID(c)
	if !ok {
		return
	}

	if err := s.repo.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "patient deleted",
		"id":      id,
	})
}

// handleLatestPatient returns the most recently created patient.
func (s *Server) handleLatestPatient(c *gin.Context) {
	patient, err := s.repo.GetLatest(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// handlePredict runs a risk assessment for the patient with the given id.
func (s *Server) handlePredict(c *gin.Context) {
	id, ok := parsePatientID(c)
	if !ok {
		return
	}

	record, err := s.predictor.PredictByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// handlePredictLatest runs a risk assessment for the most recent patient.
func (s *Server) handlePredictLatest(c *gin.Context) {
	record, err := s.predictor.PredictLatest(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
