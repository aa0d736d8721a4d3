package handler

import (
	"net/http"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/composition"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/service"
)

type tierRequest struct {
	Count             int     `json:"count" validate:"gte=0"`
	PointsPerQuestion float64 `json:"points_per_question" validate:"gt=0"`
}

type blueprintRequest struct {
	Easy   tierRequest `json:"easy"`
	Medium tierRequest `json:"medium"`
	Hard   tierRequest `json:"hard"`
}

type matrixCellRequest struct {
	Topic    string               `json:"topic" validate:"required"`
	Level    model.CognitiveLevel `json:"level" validate:"required,oneof=remember understand apply analyze"`
	Quantity int                  `json:"quantity" validate:"gte=0"`
}

type createExamRequest struct {
	Title           string              `json:"title" validate:"required,max=200"`
	Blueprint       blueprintRequest    `json:"blueprint"`
	Matrix          []matrixCellRequest `json:"matrix" validate:"omitempty,dive"`
	DurationMinutes int                 `json:"duration_minutes" validate:"gt=0"`
}

type addQuestionRequest struct {
	QuestionID int64   `json:"question_id" validate:"required,gt=0"`
	OrderIndex int     `json:"order_index" validate:"gte=0"`
	Points     float64 `json:"points" validate:"gt=0"`
}

type replaceQuestionRequest struct {
	NewQuestionID int64   `json:"new_question_id" validate:"required,gt=0"`
	Points        float64 `json:"points" validate:"gt=0"`
}

func (b blueprintRequest) model() model.Blueprint {
	return model.Blueprint{
		Easy:   model.Tier{Count: b.Easy.Count, PointsPerQuestion: b.Easy.PointsPerQuestion},
		Medium: model.Tier{Count: b.Medium.Count, PointsPerQuestion: b.Medium.PointsPerQuestion},
		Hard:   model.Tier{Count: b.Hard.Count, PointsPerQuestion: b.Hard.PointsPerQuestion},
	}
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in := service.NewExam{
		Title:           req.Title,
		Blueprint:       req.Blueprint.model(),
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       model.UserFromContext(r.Context()).ID,
	}
	if len(req.Matrix) > 0 {
		m := &model.TopicMatrix{}
		for _, c := range req.Matrix {
			m.Cells = append(m.Cells, model.MatrixCell{Topic: c.Topic, Level: c.Level, Quantity: c.Quantity})
		}
		in.Matrix = m
	}
	exam, err := h.svc.CreateExam(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.svc.ListExams(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.GetExam(r.Context(), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req addQuestionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.AddQuestion(r.Context(), examID, req.QuestionID, req.OrderIndex, req.Points)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleReplaceQuestion(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	questionID, err := idParam(r, "questionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req replaceQuestionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.ReplaceQuestion(r.Context(), examID, questionID, req.NewQuestionID, req.Points)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleRemoveQuestion(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	questionID, err := idParam(r, "questionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, err := h.svc.RemoveQuestion(r.Context(), examID, questionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleValidateExam(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rep, err := h.svc.ValidateComposition(r.Context(), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handlePublishExam(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	exam, rep, err := h.svc.PublishExam(r.Context(), examID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindValidation) {
			h.writeError(w, r, err, reportViolations(rep)...)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func reportViolations(rep service.CompositionReport) []violation {
	results := []composition.ValidationResult{rep.Blueprint}
	if rep.Matrix != nil {
		results = append(results, *rep.Matrix)
	}
	var out []violation
	for _, res := range results {
		for _, v := range res.Violations {
			out = append(out, violation{Code: string(v.Code), Message: v.Message})
		}
	}
	return out
}
