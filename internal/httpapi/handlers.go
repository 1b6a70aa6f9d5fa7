package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/synth"
	"github.com/MrWong99/lingvox/pkg/audio"
)

type translateRequest struct {
	Text       string `json:"text" validate:"required,max=4000"`
	SourceLang string `json:"source_lang" validate:"omitempty,eq=auto|lang"`
	TargetLang string `json:"target_lang" validate:"omitempty,lang"`
	ChatID     string `json:"chat_id" validate:"omitempty,max=128"`
}

type translateResponse struct {
	Translation string `json:"translation"`
	Source      string `json:"source"`
	Target      string `json:"target"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SourceLang == "" {
		req.SourceLang = "auto"
	}
	if req.TargetLang == "" {
		req.TargetLang = "en"
	}
	source, target := normalize(req.SourceLang), normalize(req.TargetLang)

	pair := lang.Pair{Primary: source, Secondary: target}
	if source == "auto" {
		pair = s.autoPair(r.Context(), req.ChatID, target)
	}
	if pair.Primary == pair.Secondary {
		writeError(w, http.StatusUnprocessableEntity, "source_lang and target_lang must differ")
		return
	}

	out, ok := s.deps.Translator.TranslatePair(r.Context(), req.Text, req.ChatID, pair)
	if !ok {
		writeError(w, http.StatusBadGateway, "translation failed")
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Translation: out, Source: source, Target: target})
}

// autoPair builds the pair for an undeclared source language: target plus
// whichever language of the chat's stored pair is not the target.
func (s *Server) autoPair(ctx context.Context, chatID, target string) lang.Pair {
	stored := s.deps.Settings.Languages(ctx, chatID)
	other := stored.Primary
	if other == target {
		other = stored.Secondary
	}
	return lang.Pair{Primary: other, Secondary: target}
}

type sttResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if ext == "" {
		ext = "ogg"
	}
	path := audio.TempPath(s.deps.TempDir, ext)
	defer audio.Remove(path)

	if err := saveUpload(file, path); err != nil {
		observe.Logger(r.Context()).Error("httpapi: save upload", "err", err)
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}

	text, ok := s.deps.Transcriber.Transcribe(r.Context(), path)
	if !ok {
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	writeJSON(w, http.StatusOK, sttResponse{Text: text})
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

type ttsRequest struct {
	Text    string `json:"text" validate:"required,max=2000"`
	Lang    string `json:"lang" validate:"required,lang"`
	Gender  string `json:"gender" validate:"omitempty,gender"`
	ChatID  string `json:"chat_id" validate:"omitempty,max=128"`
	Speaker string `json:"speaker" validate:"omitempty,max=64"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !s.decode(w, r, &req) {
		return
	}
	code := normalize(req.Lang)
	gender := store.Male
	if g, ok := store.ParseGender(req.Gender); ok {
		gender = g
	}

	path, ok := s.deps.Synthesizer.Synthesize(r.Context(), synth.Request{
		Text:     req.Text,
		Language: code,
		ChatID:   req.ChatID,
		Gender:   gender,
		Speaker:  req.Speaker,
	})
	if !ok {
		writeError(w, http.StatusBadGateway, "synthesis failed")
		return
	}
	defer audio.Remove(path)

	format := s.deps.Synthesizer.Format()
	w.Header().Set("Content-Type", audio.MIMEType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tts_"+code+"."+format))
	http.ServeFile(w, r, path)
}

type voicesResponse struct {
	Language string      `json:"language"`
	Speakers []voiceJSON `json:"speakers"`
}

type voiceJSON struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("lang")
	code, ok := lang.Normalize(raw)
	if !ok {
		code = strings.ToLower(raw)
	}
	voices, ok := s.deps.Speakers.Voices(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no voices for language %q", raw))
		return
	}
	out := voicesResponse{Language: code, Speakers: make([]voiceJSON, len(voices))}
	for i, v := range voices {
		out.Speakers[i] = voiceJSON{Name: v.Name, Gender: v.Gender}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": lang.Supported()})
}

type statusResponse struct {
	ChatID          string            `json:"chat_id"`
	Mode            store.Mode        `json:"mode"`
	Languages       [2]string         `json:"languages"`
	VoiceGender     store.Gender      `json:"voice_gender"`
	DictionaryCount int               `json:"dictionary_count"`
	Presets         map[string]string `json:"presets"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chatID := r.PathValue("chat_id")
	g := s.deps.Settings
	pair := g.Languages(ctx, chatID)
	gender := g.VoiceGender(ctx, chatID)

	presets := make(map[string]string)
	for _, code := range []string{pair.Primary, pair.Secondary} {
		if p := g.VoicePreset(ctx, chatID, code, gender); p != "" {
			presets[code] = p
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		ChatID:          chatID,
		Mode:            g.Mode(ctx, chatID),
		Languages:       [2]string{pair.Primary, pair.Secondary},
		VoiceGender:     gender,
		DictionaryCount: len(s.deps.Dictionary.List(ctx, chatID, pair.Key())),
		Presets:         presets,
	})
}

type dictAddRequest struct {
	ChatID     string `json:"chat_id" validate:"required,max=128"`
	Source     string `json:"source" validate:"required,max=200"`
	Target     string `json:"target" validate:"required,max=200"`
	SourceLang string `json:"source_lang" validate:"omitempty,lang"`
	TargetLang string `json:"target_lang" validate:"omitempty,lang"`
}

type dictRemoveRequest struct {
	ChatID     string `json:"chat_id" validate:"required,max=128"`
	Source     string `json:"source" validate:"required,max=200"`
	SourceLang string `json:"source_lang" validate:"omitempty,lang"`
	TargetLang string `json:"target_lang" validate:"omitempty,lang"`
}

// pairKey returns the dictionary key for the request languages, ru/en when
// they are omitted.
func pairKey(source, target string) string {
	if source == "" {
		source = lang.DefaultPrimary
	}
	if target == "" {
		target = lang.DefaultSecondary
	}
	return lang.PairKey(normalize(source), normalize(target))
}

func (s *Server) handleDictAdd(w http.ResponseWriter, r *http.Request) {
	var req dictAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	added := s.deps.Dictionary.Add(r.Context(), req.ChatID, pairKey(req.SourceLang, req.TargetLang), req.Source, req.Target)
	if added == 0 {
		writeError(w, http.StatusInternalServerError, "no terms were stored")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "added_count": added})
}

func (s *Server) handleDictRemove(w http.ResponseWriter, r *http.Request) {
	var req dictRemoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	removed, suggestions := s.deps.Dictionary.Remove(r.Context(), req.ChatID, pairKey(req.SourceLang, req.TargetLang), req.Source)
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Term not found", Suggestions: suggestions})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type dictListQuery struct {
	SourceLang string `json:"source_lang" validate:"omitempty,lang"`
	TargetLang string `json:"target_lang" validate:"omitempty,lang"`
}

func (s *Server) handleDictList(w http.ResponseWriter, r *http.Request) {
	q := dictListQuery{
		SourceLang: r.URL.Query().Get("source_lang"),
		TargetLang: r.URL.Query().Get("target_lang"),
	}
	if !s.check(w, &q) {
		return
	}
	terms := s.deps.Dictionary.List(r.Context(), r.PathValue("chat_id"), pairKey(q.SourceLang, q.TargetLang))
	if terms == nil {
		terms = []store.Term{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"terms": terms})
}
