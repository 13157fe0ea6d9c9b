package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

// handleUpload validates an answer-script submission and dispatches it.
// Invalid submissions are rejected with every failing field named and never
// reach the backend.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := s.dispatcher.Upload(r.Context(), req)
	s.finishAction(w, r, p, err)
}

// parseUpload reads the multipart form into an UploadRequest and validates it.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (core.UploadRequest, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.UploadRequest{}, fmt.Errorf("%w (limit %d bytes)", errFileTooLarge, maxSize)
		}
		return core.UploadRequest{}, fmt.Errorf("%w: %v", errInvalidForm, err)
	}
	defer r.MultipartForm.RemoveAll()

	manual, parseErr := core.ParseManualTotal(r.FormValue(core.FieldManualTotal))

	script, err := readFilePart(r, core.FieldScript)
	if err != nil {
		return core.UploadRequest{}, err
	}
	answerKey, err := readFilePart(r, core.FieldAnswerKey)
	if err != nil {
		return core.UploadRequest{}, err
	}
	if answerKey == nil {
		if answerKey, err = readFilePart(r, core.FieldAnswerKeyAlt); err != nil {
			return core.UploadRequest{}, err
		}
	}

	req := core.UploadRequest{
		SheetID:     r.FormValue(core.FieldSheetID),
		SheetType:   core.SheetType(r.FormValue(core.FieldSheetType)),
		ManualTotal: manual,
		Script:      script,
		AnswerKey:   answerKey,
	}
	if err := core.JoinValidation(parseErr, req.Validate()); err != nil {
		return core.UploadRequest{}, err
	}
	return req, nil
}

// readFilePart returns the named file, or nil when the field was left empty.
func readFilePart(r *http.Request, field string) (*core.FilePart, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errInvalidForm, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errInvalidForm, field, err)
	}
	return &core.FilePart{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
