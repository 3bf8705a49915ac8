package main

import (
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/backend"
	"github.com/miradorstack/mirador-bfeval/internal/models"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Format struct {
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"format"`
}

type tagModel struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

func main() {
	rules, err := backend.NewRuleBackend(os.Getenv("BFEVAL_RULES_PATH"), slog.Default())
	if err != nil {
		log.Fatalf("load rules: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{"models": availableModels()})
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		task, ok := taskOf(req.Format.Properties)
		if !ok {
			http.Error(w, `{"error":"format schema does not match a known task"}`, http.StatusBadRequest)
			return
		}
		var prompt string
		for _, m := range req.Messages {
			prompt += m.Content + "\n"
		}
		// The rule parsers skip lines they do not recognise, so the whole prompt can stand in for every input.
		out, err := rules.Generate(r.Context(), backend.Request{
			Task: task,
			Inputs: map[string]string{
				backend.InputText:     prompt,
				backend.InputLogs:     prompt,
				backend.InputFlowData: prompt,
			},
		})
		if err != nil {
			writeJSON(w, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, map[string]any{
			"model":      req.Model,
			"created_at": time.Now().UTC(),
			"message":    map[string]string{"role": "assistant", "content": string(out)},
			"done":       true,
		})
	})

	logger := log.New(log.Writer(), "ollama-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":11434",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :11434")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func availableModels() []tagModel {
	out := []tagModel{{Name: backend.BaseModel, Model: backend.BaseModel}}
	for n := 1; n <= backend.MaxEpochs; n++ {
		for _, mode := range []models.Mode{models.ModeLogs, models.ModeFlows} {
			name, err := backend.ModelFor(mode, n)
			if err != nil {
				continue
			}
			out = append(out, tagModel{Name: name, Model: name})
		}
	}
	return out
}

func taskOf(properties map[string]json.RawMessage) (backend.Task, bool) {
	has := func(name string) bool {
		_, ok := properties[name]
		return ok
	}
	switch {
	case has("service"):
		return backend.TaskLogsMetadata, true
	case has("activity"):
		return backend.TaskLogsDescription, true
	case has("system_compromised"):
		return backend.TaskLogsVerdict, true
	case has("bruteforce"):
		return backend.TaskFlowVerdict, true
	default:
		return "", false
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
