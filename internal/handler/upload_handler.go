package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"dropoutpredictor/internal/apperr"
	"dropoutpredictor/internal/logger"
	"dropoutpredictor/internal/model"
)

const uploadField = "file"

// PredictionService is the pipeline behind the upload form.
type PredictionService interface {
	Predict(fileName string, r io.Reader) (*model.Result, error)
}

type UploadHandler struct {
	predictions PredictionService
	page        *Page
	maxUpload   int64
	log         *logger.Logger
}

func NewUploadHandler(predictions PredictionService, page *Page, maxUpload int64, log *logger.Logger) *UploadHandler {
	return &UploadHandler{predictions: predictions, page: page, maxUpload: maxUpload, log: log}
}

// Index serves the empty upload form.
func (h *UploadHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.page.render(w, http.StatusOK, h.page.form())
}

// Predict handles a form upload and renders the result page.
func (h *UploadHandler) Predict(w http.ResponseWriter, r *http.Request) {
	result, err := h.run(w, r)
	if err != nil {
		status, message := describe(err)
		h.page.render(w, status, h.page.withError(message, apperr.MissingColumns(err)))
		return
	}
	h.page.render(w, http.StatusOK, h.page.withResult(result))
}

// apiResponse is the JSON form of a prediction run.
type apiResponse struct {
	*model.Result
	Download string `json:"download,omitempty"`
}

type apiError struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Missing []string `json:"missing,omitempty"`
}

// APIPredict runs the same pipeline and answers with JSON.
func (h *UploadHandler) APIPredict(w http.ResponseWriter, r *http.Request) {
	result, err := h.run(w, r)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status, _ := describe(err)
		w.WriteHeader(status)
		h.encode(w, apiError{Error: err.Error(), Code: apperr.CodeOf(err), Missing: apperr.MissingColumns(err)})
		return
	}
	resp := apiResponse{Result: result}
	if result.RunID != "" {
		resp.Download = "/runs/" + result.RunID + "/predictions.csv"
	}
	h.encode(w, resp)
}

func (h *UploadHandler) run(w http.ResponseWriter, r *http.Request) (*model.Result, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errTooLarge
		}
		return nil, apperr.Wrap(err, apperr.CodeParse, "bad upload request")
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, apperr.ParseError("No file uploaded")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeParse, "failed to open upload")
	}
	defer file.Close()

	h.log.Debug("received %s (%d bytes)", fh.Filename, fh.Size)
	result, err := h.predictions.Predict(fh.Filename, file)
	if err != nil {
		h.logFailure(fh, err)
		return nil, err
	}
	return result, nil
}

func (h *UploadHandler) logFailure(fh *multipart.FileHeader, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeSchema, apperr.CodeParse:
		h.log.Warn("rejected %s: %v", fh.Filename, err)
	default:
		h.log.Error("prediction failed for %s: %v", fh.Filename, err)
	}
}

func (h *UploadHandler) encode(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("error encoding response: %v", err)
	}
}

var errTooLarge = apperr.New(codeTooLarge, "File too large")

const codeTooLarge = "UPLOAD_TOO_LARGE"

// describe maps an error to an HTTP status and the message shown to the user.
func describe(err error) (int, string) {
	switch apperr.CodeOf(err) {
	case apperr.CodeSchema:
		return http.StatusUnprocessableEntity, err.Error()
	case apperr.CodeParse:
		return http.StatusBadRequest, "An error occurred: " + err.Error()
	case codeTooLarge:
		return http.StatusRequestEntityTooLarge, "An error occurred: " + err.Error()
	case apperr.CodeNotFound:
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "An error occurred: " + err.Error()
	}
}
