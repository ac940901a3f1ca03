package web

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/melosso/reef-sub003/internal/parse"
)

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleFormats lists the supported format identifiers.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"formats": parse.Formats()})
}

// handlePreview parses a capped number of rows from the uploaded file and
// returns sample rows, parse failures, and in-file duplicate keys.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, err := s.importForm(w, r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	format, fcfg, keyColumns, err := formatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Preview(r.Context(), format, file, fcfg, keyColumns)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

// handleDiff compares two uploaded files of the same format and classifies
// each record key as added, changed, removed, or unchanged.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	previous, err := s.importForm(w, r, "previous")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer previous.Close()

	current, _, err := r.FormFile("current")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no current file provided")
		return
	}
	defer current.Close()

	format, fcfg, keyColumns, err := formatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Compare(r.Context(), format, previous, current, fcfg, keyColumns)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

// handleImport loads the full uploaded file into the staging table.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	profile := r.FormValue("profile")
	if profile == "" {
		writeError(w, http.StatusBadRequest, "missing profile")
		return
	}

	format, fcfg, _, err := formatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Load(r.Context(), profile, format, file, header.Size, fcfg)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

// importForm applies the upload size limit, parses the multipart form, and
// returns the named file field.
func (s *Server) importForm(w http.ResponseWriter, r *http.Request, field string) (multipart.File, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, fmt.Errorf("file too large or invalid form")
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("no %s file provided", field)
	}
	return file, nil
}

// formatRequest builds the parse configuration from the request form.
// The format field is required; everything else falls back to defaults.
func formatRequest(r *http.Request) (string, parse.FormatConfig, []string, error) {
	format := r.FormValue("format")
	if format == "" {
		return "", parse.FormatConfig{}, nil, fmt.Errorf("missing format")
	}

	fcfg := parse.FormatConfig{
		Encoding:       r.FormValue("encoding"),
		HasHeader:      formBool(r, "hasHeader", true),
		TrimWhitespace: formBool(r, "trimWhitespace", false),
		JSONLines:      formBool(r, "jsonLines", false),
		DataRootPath:   r.FormValue("dataRootPath"),
		RecordElement:  r.FormValue("recordElement"),
		XMLNamespace:   r.FormValue("xmlNamespace"),
	}

	var err error
	if fcfg.Delimiter, err = formRune(r, "delimiter"); err != nil {
		return "", fcfg, nil, err
	}
	if fcfg.QuoteChar, err = formRune(r, "quoteChar"); err != nil {
		return "", fcfg, nil, err
	}

	if v := r.FormValue("skipRows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "", fcfg, nil, fmt.Errorf("invalid skipRows value %q", v)
		}
		fcfg.SkipRows = n
	}

	// Presence matters: an empty nullValue matches empty fields only when set.
	if vals, ok := r.Form["nullValue"]; ok && len(vals) > 0 {
		fcfg.NullValue = &vals[0]
	}

	var keyColumns []string
	for _, col := range strings.Split(r.FormValue("keyColumns"), ",") {
		if col = strings.TrimSpace(col); col != "" {
			keyColumns = append(keyColumns, col)
		}
	}

	return format, fcfg, keyColumns, nil
}

// formBool parses an optional boolean form value.
func formBool(r *http.Request, name string, def bool) bool {
	v := r.FormValue(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// formRune parses an optional single-character form value.
func formRune(r *http.Request, name string) (rune, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, nil
	}
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", name, v)
	}
	c, _ := utf8.DecodeRuneInString(v)
	return c, nil
}
