// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapitest provides an in-process fake of the zhai backend for
// tests. It validates logins and bearer tokens the way the real server
// does and replays scripted NDJSON chat bodies, flushing chunk by chunk.
package chatapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MaxUserNameLength mirrors the backend's username limit.
const MaxUserNameLength = 20

// User is a logged-in account on the fake server.
type User struct {
	Name string
	ID   string
}

// ChatFunc produces the raw body chunks for one chat message.
type ChatFunc func(message string) []string

// Server is a running fake backend. Close it when done.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	sessions      map[string]User
	chat          ChatFunc
	chunkDelay    time.Duration
	chatStatus    int
	omitUserID    bool
	healthy       bool
	loginCalls    int
	chatCalls     int
	lastMessage   string
	lastRequestID string
}

// NewServer starts a fake backend that answers every message with
// "echo: <message>".
func NewServer() *Server {
	s := &Server{
		sessions: make(map[string]User),
		healthy:  true,
		chat: func(message string) []string {
			return []string{Line("answer", "echo: "+message)}
		},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/chat", s.handleChat)
	})
	return r
}

// Line encodes one NDJSON record including its trailing newline.
func Line(recordType, response string) string {
	data, _ := json.Marshal(map[string]string{"type": recordType, "response": response})
	return string(data) + "\n"
}

// =============================================================================
// SCRIPTING
// =============================================================================

// SetChatChunks makes every chat reply consist of exactly these chunks.
func (s *Server) SetChatChunks(chunks ...string) {
	s.SetChatFunc(func(string) []string { return chunks })
}

// SetChatFunc installs a per-message body generator.
func (s *Server) SetChatFunc(fn ChatFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = fn
}

// SetChunkDelay sleeps between chunks, honoring client disconnects.
func (s *Server) SetChunkDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkDelay = d
}

// SetChatStatus forces /api/chat to fail with status after auth passes.
// Zero restores normal behavior.
func (s *Server) SetChatStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatStatus = status
}

// SetOmitUserID drops user_id from login replies, as the reference
// backend does.
func (s *Server) SetOmitUserID(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitUserID = omit
}

// SetHealthy toggles the /health status.
func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

// IssueToken registers a session without going through /api/login.
func (s *Server) IssueToken(name string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = User{Name: name, ID: userID(name)}
	return token
}

// RevokeAll forgets every session, like a backend restart.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]User)
}

// LoginCalls returns the number of /api/login requests.
func (s *Server) LoginCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCalls
}

// ChatCalls returns the number of /api/chat requests.
func (s *Server) ChatCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCalls
}

// LastMessage returns the message of the most recent authorized chat.
func (s *Server) LastMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessage
}

// LastRequestID returns the X-Request-ID of the most recent chat.
func (s *Server) LastRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequestID
}

func userID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// =============================================================================
// HANDLERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "workflow unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "翟助手 API"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.loginCalls++
	omitID := s.omitUserID
	s.mu.Unlock()

	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	reply := map[string]interface{}{"success": false, "user_name": ""}
	switch {
	case strings.TrimSpace(req.Username) == "":
		reply["message"] = "用户名不能为空"
	case utf8.RuneCountInString(req.Username) > MaxUserNameLength:
		reply["message"] = "用户名长度不能超过20个字符"
	default:
		token := uuid.NewString()
		user := User{Name: req.Username, ID: userID(req.Username)}
		s.mu.Lock()
		s.sessions[token] = user
		s.mu.Unlock()

		reply = map[string]interface{}{
			"success":   true,
			"user_name": user.Name,
			"message":   "登录成功",
			"token":     token,
		}
		if !omitID {
			reply["user_id"] = user.ID
		}
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.chatCalls++
	s.lastRequestID = r.Header.Get("X-Request-ID")
	s.mu.Unlock()

	auth := r.Header.Get("Authorization")
	if auth == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "缺少认证 Token"})
		return
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	s.mu.Lock()
	_, ok := s.sessions[token]
	status := s.chatStatus
	chat := s.chat
	delay := s.chunkDelay
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token 无效或已过期"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "消息内容不能为空"})
		return
	}

	s.mu.Lock()
	s.lastMessage = req.Message
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for i, chunk := range chat(req.Message) {
		if i > 0 && delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
