package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"flexkazi/freelancer-service/middleware"
	"flexkazi/freelancer-service/models"
	"flexkazi/freelancer-service/repositories"
	"flexkazi/freelancer-service/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxSubmissionBytes = 32 << 20

type TaskHandler struct {
	service *services.TaskService
	files   *repositories.FileRepository
}

func NewTaskHandler(service *services.TaskService, files *repositories.FileRepository) *TaskHandler {
	return &TaskHandler{service: service, files: files}
}

func checkRole(r *http.Request, allowedRoles []string) error {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return fmt.Errorf("role is missing in request context")
	}
	for _, role := range allowedRoles {
		if role == claims.Role {
			return nil
		}
	}
	return fmt.Errorf("access forbidden: user does not have the required role")
}

func taskIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(mux.Vars(r)["id"])
}

// GetDashboard returns the bucketed view plus the available list and the
// user's aggregate stats in one response.
func (h *TaskHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	dashboard, err := h.service.LoadDashboard(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

func (h *TaskHandler) GetAvailableTasks(w http.ResponseWriter, r *http.Request) {
	category := models.TaskCategory(r.URL.Query().Get("category"))
	priority := models.TaskPriority(r.URL.Query().Get("priority"))

	tasks, err := h.service.ListAvailable(r.Context(), category, priority)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	task, err := h.service.GetTask(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	task, err := h.service.AcceptTask(r.Context(), userID, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) OpenWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	task, err := h.service.OpenWorkspace(r.Context(), userID, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// SubmitWork reads a multipart form: any number of parts named "files"
// plus a "notes" field.
func (h *TaskHandler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	var attachments []services.Attachment
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
				return
			}
			defer file.Close()
			attachments = append(attachments, services.Attachment{
				FileName: header.Filename,
				Content:  file,
			})
		}
	}

	task, err := h.service.SubmitWork(r.Context(), userID, taskID, r.FormValue("notes"), attachments)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ReviewTask(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, []string{models.RoleReviewer}); err != nil {
		http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	var req struct {
		Feedback string   `json:"feedback"`
		Rating   *float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.ReviewTask(r.Context(), taskID, req.Feedback, req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// DownloadFile streams a stored deliverable back to the caller.
func (h *TaskHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := primitive.ObjectIDFromHex(mux.Vars(r)["fileId"])
	if err != nil {
		http.Error(w, "Invalid file id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if err := h.files.Download(fileID, w); err != nil {
		writeError(w, err)
		return
	}
}
