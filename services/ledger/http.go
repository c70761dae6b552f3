package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mealplan-backend/lib/scrapers/eliving"
	"mealplan-backend/lib/serviceutil"
	"mealplan-backend/lib/timezone"
	"mealplan-backend/services/searchlog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// request bodies carry at most a pasted ledger export
const maxBodyBytes = 8 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// Handler serves the HTTP API. Every route but /health requires
// accessToken when it is not empty.
func (s *Service) Handler(accessToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(serviceutil.VerifyAccessToken(accessToken))

		r.Post("/login", s.handleLogin)
		r.Post("/upload-transactions", s.handleUpload)
		r.Route("/searches", func(r chi.Router) {
			r.Get("/", s.handleSearches)
			r.Get("/{id}", s.handleSearch)
		})
	})
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": timezone.Now().Format(time.RFC3339),
	})
}

// failureStatus maps a failure class onto the status code of the response.
func failureStatus(class eliving.Class) int {
	switch class {
	case eliving.ClassReenterCredentials, eliving.ClassReenterCode:
		return http.StatusUnauthorized
	case eliving.ClassTryAgain:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.PsuEmail == "" || req.Password == "" || req.VerificationCode == "" ||
		req.FromDate == "" || req.ToDate == "" {
		writeError(w, http.StatusBadRequest, "Fill in all required fields", "")
		return
	}

	res, searchId, err := s.Login(r.Context(), req)
	if errors.Is(err, eliving.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, LoginFailure{
			FailureResult: eliving.Failure(err),
			SearchId:      searchId,
		})
		return
	}
	if err != nil {
		failure := eliving.Failure(err)
		if failure.Class == eliving.ClassCancelled {
			// the client is gone
			return
		}
		writeJSON(w, failureStatus(failure.Class), LoginFailure{
			FailureResult: failure,
			SearchId:      searchId,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.CsvData == "" || req.UserId == "" {
		writeError(w, http.StatusBadRequest, "CSV data and userId are required", "")
		return
	}

	res, err := s.Upload(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to process transactions", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleSearches(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if text := r.URL.Query().Get("limit"); text != "" {
		var err error
		limit, err = strconv.Atoi(text)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number", "")
			return
		}
	}

	entries, err := s.Searches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch search history", err.Error())
		return
	}
	if entries == nil {
		entries = []searchlog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": entries})
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	entry, err := s.Search(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, searchlog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Search record not found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch search details", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
