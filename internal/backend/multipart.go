package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeUpload builds the multipart body for /upload-sheet. Parts are written
// in form order: file, sheet_type, manual_total_entry, then reference_file
// and secret_code when present.
func encodeUpload(req core.UploadRequest) (*bytes.Buffer, string, error) {
	if req.Script == nil {
		return nil, "", fmt.Errorf("encode upload: %s is missing", core.FieldScript)
	}
	if req.ManualTotal == nil {
		return nil, "", fmt.Errorf("encode upload: %s is missing", core.FieldManualTotal)
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := writeFile(w, core.FieldScript, req.Script); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(core.FieldSheetType, string(req.SheetType)); err != nil {
		return nil, "", fmt.Errorf("encode upload: %w", err)
	}
	if err := w.WriteField(core.FieldManualTotal, req.ManualTotal.String()); err != nil {
		return nil, "", fmt.Errorf("encode upload: %w", err)
	}
	if req.AnswerKey != nil && len(req.AnswerKey.Data) > 0 {
		if err := writeFile(w, core.FieldAnswerKey, req.AnswerKey); err != nil {
			return nil, "", err
		}
	}
	if id := strings.TrimSpace(req.SheetID); id != "" {
		if err := w.WriteField(core.FieldSheetID, id); err != nil {
			return nil, "", fmt.Errorf("encode upload: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode upload: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// writeFile adds a file part, keeping the original content type when known.
func writeFile(w *multipart.Writer, field string, f *core.FilePart) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := f.Name
	if name == "" {
		name = field
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("encode upload %s: %w", field, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("encode upload %s: %w", field, err)
	}
	return nil
}
