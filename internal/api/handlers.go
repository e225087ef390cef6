package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/mentora/internal/auth"
	"github.com/p-n-ai/mentora/internal/content"
	"github.com/p-n-ai/mentora/internal/dedup"
)

type detectBody struct {
	ClassLevel          *int     `json:"class_level"`
	Subject             *string  `json:"subject"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

type deleteBody struct {
	Action      string   `json:"action"`
	GroupID     string   `json:"group_id"`
	QuestionIDs []string `json:"question_ids"`
	DryRun      bool     `json:"dry_run"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type questionView struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Topic      string    `json:"topic,omitempty"`
	ClassLevel int       `json:"class_level,omitempty"`
	Subject    string    `json:"subject,omitempty"`
}

type groupView struct {
	GroupID   string         `json:"group_id"`
	Questions []questionView `json:"questions"`
	Count     int            `json:"count"`
	Score     float64        `json:"score"`
}

type detectResponse struct {
	Success         bool        `json:"success"`
	TotalGroups     int         `json:"total_groups"`
	TotalDuplicates int         `json:"total_duplicates"`
	Threshold       float64     `json:"similarity_threshold"`
	Duplicates      []groupView `json:"duplicates"`
}

type deleteResponse struct {
	Success        bool     `json:"success"`
	DeletedCount   int      `json:"deleted_count"`
	PreservedCount int      `json:"preserved_count"`
	PreservedID    string   `json:"preserved_id,omitempty"`
	DeletedIDs     []string `json:"deleted_ids,omitempty"`
	DryRun         bool     `json:"dry_run,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(w, r, loginSchema, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := auth.Authenticate(r.Context(), s.users, body.Email, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("staff login", "email", user.Email, "role", user.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"role":    user.Role,
	})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	req, err := parseDetect(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.dedup.Detect(r.Context(), req, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDetectResponse(report))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := parseDetect(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.dedup.Detect(r.Context(), req, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := dedup.WriteWorkbook(&buf, report); err != nil {
		slog.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	filename := fmt.Sprintf("duplicates-%s.xlsx", report.GeneratedAt.Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body deleteBody
	if err := decodeBody(w, r, deleteSchema, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := ""
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		actor = c.Email
	}

	req := dedup.DeleteRequest{
		GroupID:     body.GroupID,
		QuestionIDs: body.QuestionIDs,
		Actor:       actor,
	}
	var (
		res dedup.DeleteResult
		err error
	)
	if body.DryRun {
		res, err = s.dedup.PreviewDelete(r.Context(), req)
	} else {
		res, err = s.dedup.DeleteGroup(r.Context(), req)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{
		Success:        true,
		DeletedCount:   res.DeletedCount,
		PreservedCount: res.PreservedCount,
		PreservedID:    res.PreservedID,
		DeletedIDs:     res.DeletedIDs,
		DryRun:         body.DryRun,
	})
}

func parseDetect(w http.ResponseWriter, r *http.Request) (dedup.DetectRequest, error) {
	var body detectBody
	if err := decodeBody(w, r, detectSchema, &body); err != nil {
		return dedup.DetectRequest{}, err
	}
	return body.toRequest(), nil
}

func (b detectBody) toRequest() dedup.DetectRequest {
	req := dedup.DetectRequest{
		Filter:    content.Filter{ClassLevel: b.ClassLevel},
		Threshold: b.SimilarityThreshold,
	}
	if b.Subject != nil {
		req.Filter.SubjectID = *b.Subject
	}
	return req
}

// decodeBody reads a JSON body, validates it against schema and decodes it
// into dst. An empty body is treated as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return decodeBytes(data, schema, dst)
}

func decodeBytes(data []byte, schema *gojsonschema.Schema, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if err := validateBody(schema, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func newDetectResponse(r dedup.Report) detectResponse {
	groups := make([]groupView, 0, len(r.Groups))
	for _, g := range r.Groups {
		qs := make([]questionView, len(g.Questions))
		for i, q := range g.Questions {
			qs[i] = questionView{
				ID:         q.ID,
				Text:       q.Text,
				CreatedAt:  q.CreatedAt,
				Topic:      q.TopicTitle,
				ClassLevel: q.ClassLevel,
				Subject:    q.SubjectName,
			}
		}
		groups = append(groups, groupView{
			GroupID:   g.ID,
			Questions: qs,
			Count:     len(qs),
			Score:     g.Score,
		})
	}
	return detectResponse{
		Success:         true,
		TotalGroups:     r.TotalGroups,
		TotalDuplicates: r.TotalDuplicates,
		Threshold:       r.Threshold,
		Duplicates:      groups,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dedup.ErrInvalidThreshold), errors.Is(err, dedup.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dedup.ErrVerificationFailed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
