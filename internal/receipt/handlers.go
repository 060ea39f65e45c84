package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20) // 50MB

// analysisFailedMessage is the only failure detail shown to users
const analysisFailedMessage = "We couldn't read that receipt. Please try again with a clearer photo."

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message} with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// handleIndex serves the main page with the current result panel
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	record, analyzing := session.Snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.renderer.RenderPage(w, PageData{
		User:         session.UserID(),
		AuthEnabled:  s.auth.Enabled(),
		SelectedFile: session.SelectedFile(),
		Result:       BuildView(record, analyzing),
	})
	if err != nil {
		slog.Error("Error rendering page", "error", err)
	}
}

// handleResultFragment serves the result panel alone
func (s *Server) handleResultFragment(w http.ResponseWriter, r *http.Request) {
	record, analyzing := s.session(r).Snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderResult(w, BuildView(record, analyzing)); err != nil {
		slog.Error("Error rendering result", "error", err)
	}
}

// handleSession reports the signed-in user
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var user *string
	if u, ok := s.auth.Authenticate(r); ok {
		user = &u
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"isLoading": false,
	})
}

// isJSONRequest reports whether the client posted JSON rather than a form
func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// handleLogin checks credentials and sets the session cookie
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		creds.Username = r.FormValue("username")
		creds.Password = r.FormValue("password")
	}

	if !s.auth.Enabled() || !s.auth.CheckCredentials(creds.Username, creds.Password) {
		slog.Warn("Failed login", "user", creds.Username)
		if isJSONRequest(r) {
			jsonError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		if err := s.renderer.RenderSignIn(w, true); err != nil {
			slog.Error("Error rendering sign-in page", "error", err)
		}
		return
	}

	token, err := s.auth.IssueToken(creds.Username)
	if err != nil {
		slog.Error("Error issuing session token", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, s.auth.sessionCookie(token))

	if isJSONRequest(r) {
		writeJSON(w, http.StatusOK, map[string]string{"user": creds.Username})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears the session cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, expiredSessionCookie())
	if isJSONRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// detectContentType returns the declared type of an uploaded file,
// falling back to its extension
func detectContentType(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleAnalyzeReceipt handles a dropped or selected receipt file
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	upload := FileUpload{
		Filename:    header.Filename,
		ContentType: detectContentType(header.Header.Get("Content-Type"), header.Filename),
		Data:        data,
	}

	// An abandoned request still finishes its extraction
	ctx := context.WithoutCancel(r.Context())
	record, accepted, err := s.service.Intake(ctx, s.session(r), upload)
	if !accepted {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		jsonError(w, analysisFailedMessage, http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleCurrentReceipt returns the session's record and state
func (s *Server) handleCurrentReceipt(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	record, analyzing := session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"record":        record,
		"analyzing":     analyzing,
		"selected_file": session.SelectedFile(),
	})
}

// handleClearSelection clears the displayed filename
func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	if !s.session(r).ClearSelection() {
		jsonError(w, "An extraction is in progress", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChat answers a question about the current receipt
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, "Message is required", http.StatusBadRequest)
		return
	}

	reply := s.service.Chat(r.Context(), s.session(r), req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// handleNotifications returns and clears pending notifications
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(r).TakeNotifications())
}

// handleListReceipts returns the user's persisted receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleExportReceipts streams the user's receipts as a spreadsheet
func (s *Server) handleExportReceipts(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportReceipts(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		slog.Error("Error exporting receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.Write(data)
}

// handleGetFile serves an uploaded image
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetFile(r.Context(), r.PathValue("path"))
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
