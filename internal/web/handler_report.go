package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/geo"
	"github.com/vbonduro/prakriti/internal/service"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1024*1024)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	loc, err := parseLocation(r.FormValue("lat"), r.FormValue("lng"))
	if err != nil {
		s.writeServiceError(w, err, "invalid location")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	report, err := s.service.SubmitReport(r.Context(), service.Submission{
		Kind:        domain.Kind(strings.TrimSpace(r.FormValue("kind"))),
		Description: r.FormValue("description"),
		Contributor: r.FormValue("contributor"),
		Location:    loc,
		Photo:       imageData,
		MimeType:    mimeType,
	})
	if err != nil {
		s.writeServiceError(w, err, "failed to submit report")
		return
	}

	s.writeJSON(w, http.StatusCreated, report)
}

// parseLocation reads the lat/lng form values. Both empty means no location.
func parseLocation(latStr, lngStr string) (*geo.Coordinate, error) {
	latStr, lngStr = strings.TrimSpace(latStr), strings.TrimSpace(lngStr)
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, &service.ValidationError{Field: "lat", Message: "must be a number"}
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, &service.ValidationError{Field: "lng", Message: "must be a number"}
	}
	return &geo.Coordinate{Lat: lat, Lng: lng}, nil
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ReportFilter{
		Status: domain.Status(q.Get("status")),
		Kind:   domain.Kind(q.Get("kind")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	reports, err := s.service.ListReports(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err, "failed to list reports")
		return
	}
	s.writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	report, err := s.service.GetReport(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get report", "report_id", id)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	reader, mimeType, err := s.service.GetPhoto(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		s.writeServiceError(w, err, "failed to get photo", "report_id", id)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "report_id", id, "error", err)
	}
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
