// Package remotetest provides an in-process fake of the recipe API for tests.
// It reproduces the API's routes, cookie handling, validation messages and
// like/dislike bookkeeping.
package remotetest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Route names accepted by Calls and FailNext.
const (
	RouteSignup   = "signup"
	RouteLogin    = "login"
	RouteLogout   = "logout"
	RouteValidate = "validate"
	RoutePost     = "post"
	RouteLike     = "like"
	RouteDislike  = "dislike"
	RouteComment  = "comment"
)

const (
	cookieName  = "token"
	tokenTTL    = 72 * time.Hour
	specialRune = "!@#$%^&*()"
	digitRune   = "0123456789"
)

var signingKey = []byte("remotetest-signing-key")

type user struct {
	id       string
	name     string
	email    string
	hash     []byte
	likes    map[string]bool
	dislikes map[string]bool
}

type comment struct {
	ID      string `json:"ID"`
	UserID  string `json:"UserID"`
	Name    string `json:"Name"`
	Text    string `json:"Text"`
	Created int64  `json:"Created"`
}

type postRecord struct {
	ID       string    `json:"ID"`
	UserID   string    `json:"UserID"`
	Title    string    `json:"Title"`
	Likes    int64     `json:"Likes"`
	Dislikes int64     `json:"Dislikes"`
	Comments []comment `json:"Comments"`
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*user
	byID     map[string]*user
	posts    map[string]*postRecord
	calls    map[string]int
	failures map[string]int
}

// New starts a fake API. Callers must Close it.
func New() *Server {
	s := &Server{
		users:    make(map[string]*user),
		byID:     make(map[string]*user),
		posts:    make(map[string]*postRecord),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/signup", s.track(RouteSignup, s.signup))
	r.Post("/auth/login", s.track(RouteLogin, s.login))
	r.Post("/auth/logout", s.track(RouteLogout, s.logout))
	r.Get("/auth/validate", s.track(RouteValidate, s.validate))
	r.Get("/posts/{id}", s.track(RoutePost, s.getPost))
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/posts/{id}/like", s.track(RouteLike, s.react(true)))
		r.Post("/posts/{id}/dislike", s.track(RouteDislike, s.react(false)))
		r.Post("/posts/{id}/comments", s.track(RouteComment, s.addComment))
	})
	return r
}

// AddUser registers an account directly and returns its ID.
func (s *Server) AddUser(name, email, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, hash).id
}

func (s *Server) addUserLocked(name, email string, hash []byte) *user {
	u := &user{
		id:       uuid.NewString(),
		name:     name,
		email:    email,
		hash:     hash,
		likes:    make(map[string]bool),
		dislikes: make(map[string]bool),
	}
	s.users[email] = u
	s.byID[u.id] = u
	return u
}

// AddPost stores a post with the given counters.
func (s *Server) AddPost(id, title string, likes, dislikes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[id] = &postRecord{ID: id, Title: title, Likes: likes, Dislikes: dislikes}
}

// SetReaction marks a post as liked or disliked by the user, without
// touching counters.
func (s *Server) SetReaction(userID, postID string, liked, disliked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byID[userID]
	u.likes[postID] = liked
	u.dislikes[postID] = disliked
}

// Counts returns a post's current counters.
func (s *Server) Counts(postID string) (likes, dislikes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.posts[postID]
	return p.Likes, p.Dislikes
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// FailNext makes the next request to route answer with status.
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

func (s *Server) track(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		status, fail := s.failures[route]
		delete(s.failures, route)
		s.mu.Unlock()
		if fail {
			http.Error(w, http.StatusText(status), status)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func issueToken(u *user) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.id,
		"name":    u.name,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}).SignedString(signingKey)
}

func setTokenCookie(w http.ResponseWriter, tok string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    tok,
		HttpOnly: true,
		Expires:  time.Now().Add(tokenTTL),
		Path:     "/",
	})
}

func validateSignup(name, email, password string) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(name) == "" {
		errs["name"] = "Name is required."
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Invalid email format. Please enter a valid email."
	}
	if len(password) < 8 || !strings.ContainsAny(password, specialRune) || !strings.ContainsAny(password, digitRune) {
		errs["password"] = "Password must be at least 8 characters long, contain one number and one special character."
	}
	return errs
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if errs := validateSignup(req.Name, req.Email, req.Password); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		http.Error(w, "Email already exists", http.StatusBadRequest)
		return
	}
	u := s.addUserLocked(req.Name, req.Email, hash)
	s.mu.Unlock()

	tok, err := issueToken(u)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}
	setTokenCookie(w, tok)
	writeJSON(w, http.StatusCreated, map[string]string{"token": tok})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Invalid email", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}
	tok, err := issueToken(u)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}
	setTokenCookie(w, tok)
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		Path:     "/",
	})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Logged out successfully"))
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"token": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": c.Value})
}

// viewer returns the user identified by the request's token cookie.
func (s *Server) viewer(r *http.Request) (*user, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil, false
	}
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, false
	}
	id, _ := claims["user_id"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	return u, ok
}

type viewerKey struct{}

func contextWithViewer(r *http.Request, u *user) context.Context {
	return context.WithValue(r.Context(), viewerKey{}, u)
}

func viewerFromContext(r *http.Request) *user {
	u, _ := r.Context().Value(viewerKey{}).(*user)
	return u
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(cookieName); err != nil {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		u, ok := s.viewer(r)
		if !ok {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithViewer(r, u)))
	})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	p, ok := s.posts[id]
	var snapshot postRecord
	if ok {
		snapshot = *p
		snapshot.Comments = append([]comment(nil), p.Comments...)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	u, ok := s.viewer(r)
	if !ok {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}
	s.mu.Lock()
	likes, dislikes := setKeys(u.likes), setKeys(u.dislikes)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"post":        snapshot,
		"likesList":   likes,
		"dislikeList": dislikes,
	})
}

func setKeys(m map[string]bool) []string {
	out := []string{}
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	return out
}

// react toggles a like (like=true) or dislike the way the API does.
func (s *Server) react(like bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := viewerFromContext(r)
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.posts[id]
		if !ok {
			http.Error(w, "Invalid post ID", http.StatusBadRequest)
			return
		}
		same, other := u.likes, u.dislikes
		sameCount, otherCount := &p.Likes, &p.Dislikes
		if !like {
			same, other = other, same
			sameCount, otherCount = otherCount, sameCount
		}
		if same[id] {
			same[id] = false
			*sameCount--
		} else {
			if other[id] {
				other[id] = false
				*otherCount--
			}
			same[id] = true
			*sameCount++
		}
		writeJSON(w, http.StatusOK, map[string]int64{"likes": p.Likes, "dislikes": p.Dislikes})
	}
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid comment data", http.StatusBadRequest)
		return
	}
	u := viewerFromContext(r)
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		http.Error(w, "Could not add comment", http.StatusInternalServerError)
		return
	}
	c := comment{
		ID:      uuid.NewString(),
		UserID:  u.id,
		Name:    u.name,
		Text:    req.Text,
		Created: time.Now().Unix(),
	}
	p.Comments = append(p.Comments, c)
	writeJSON(w, http.StatusOK, c)
}
