package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// CurriculumLoader exposes the loaded curriculum and loads it on demand.
type CurriculumLoader interface {
	Current() (*curriculum.Curriculum, bool)
	Reload(ctx context.Context) (*curriculum.Curriculum, error)
}

// curriculumBody caches the encoded response for one curriculum snapshot.
type curriculumBody struct {
	mu       sync.Mutex
	snapshot *curriculum.Curriculum
	body     []byte
	etag     string
}

func (b *curriculumBody) get(c *curriculum.Curriculum) ([]byte, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.snapshot == c && b.body != nil {
		return b.body, b.etag, nil
	}
	body, err := json.Marshal(Envelope{Success: true, Data: c})
	if err != nil {
		return nil, "", err
	}
	sum := blake2b.Sum256(body)
	b.snapshot, b.body, b.etag = c, body, `"`+hex.EncodeToString(sum[:])+`"`
	return b.body, b.etag, nil
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loader.Current()
	if !ok {
		var err error
		c, err = s.loader.Reload(r.Context())
		if err != nil {
			slog.Error("curriculum load failed", "request_id", GetRequestID(r.Context()), "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	body, etag, err := s.curriculum.get(c)
	if err != nil {
		slog.Error("encoding curriculum", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
