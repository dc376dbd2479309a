// Package server is a development implementation of the remote recipe
// service contract, persisting records through a storage.RecipeState.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"recipestore"
	"recipestore/storage"
)

type Server struct {
	state          storage.RecipeState
	allowedOrigins []string
	newID          func() string

	// mu serializes read-modify-write cycles against state.
	mu sync.Mutex
}

type Option func(*Server)

// WithAllowedOrigins sets the CORS origins; the default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

func New(state storage.RecipeState, opts ...Option) *Server {
	s := &Server{
		state:          state,
		allowedOrigins: []string{"*"},
		newID:          func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed service wrapped in CORS middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/recipes", s.listRecipes).Methods(http.MethodGet)
	r.HandleFunc("/recipes", s.createRecipe).Methods(http.MethodPost)
	r.HandleFunc("/recipes/schema", s.recipeSchema).Methods(http.MethodGet)
	r.HandleFunc("/recipes/{id}", s.updateRecipe).Methods(http.MethodPut)
	r.HandleFunc("/recipes/{id}", s.deleteRecipe).Methods(http.MethodDelete)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	})
	return c.Handler(r)
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.load(r.Context())
	if err != nil {
		s.internalError(w, "Failed to load recipes", err)
		return
	}

	col := recipestore.Collection{}
	for _, rec := range recipes {
		key := string(rec.Category)
		col[key] = append(col[key], rec)
	}

	writeJSON(w, http.StatusOK, col)
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	var draft recipestore.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		slog.Warn("SERVER: Failed to decode request body", "error", err)
		return
	}
	if err := validate(draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := draft.WithID(s.newID())
	err := s.modify(r.Context(), func(recipes []recipestore.Recipe) ([]recipestore.Recipe, error) {
		return append(recipes, rec), nil
	})
	if err != nil {
		s.internalError(w, "Failed to create recipe", err)
		return
	}

	slog.Info("SERVER: Recipe created", "id", rec.ID, "category", rec.Category)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var rec recipestore.Recipe
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		slog.Warn("SERVER: Failed to decode request body", "error", err)
		return
	}
	if rec.ID != "" && rec.ID != id {
		http.Error(w, "Record id does not match path", http.StatusBadRequest)
		return
	}
	if err := validate(rec.Draft()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec.ID = id

	err := s.modify(r.Context(), func(recipes []recipestore.Recipe) ([]recipestore.Recipe, error) {
		i := slices.IndexFunc(recipes, func(x recipestore.Recipe) bool { return x.ID == id })
		if i < 0 {
			return nil, errNotFound
		}
		recipes[i] = rec
		return recipes, nil
	})
	if errors.Is(err, errNotFound) {
		http.Error(w, "No matching recipe found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "Failed to update recipe", err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.modify(r.Context(), func(recipes []recipestore.Recipe) ([]recipestore.Recipe, error) {
		i := slices.IndexFunc(recipes, func(x recipestore.Recipe) bool { return x.ID == id })
		if i < 0 {
			return nil, errNotFound
		}
		return slices.Delete(recipes, i, i+1), nil
	})
	if errors.Is(err, errNotFound) {
		http.Error(w, "No matching recipe found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "Failed to delete recipe", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recipeSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RecipeSchema())
}

var errNotFound = errors.New("recipe not found")

// load returns the stored records in insertion order. A state that was never
// saved reads as empty.
func (s *Server) load(ctx context.Context) ([]recipestore.Recipe, error) {
	data, err := s.state.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return []recipestore.Recipe{}, nil
	}
	if err != nil {
		return nil, err
	}

	var recipes []recipestore.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}
	return recipes, nil
}

func (s *Server) modify(ctx context.Context, fn func([]recipestore.Recipe) ([]recipestore.Recipe, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, err := s.load(ctx)
	if err != nil {
		return err
	}
	recipes, err = fn(recipes)
	if err != nil {
		return err
	}

	data, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("encode recipes: %w", err)
	}
	return s.state.Save(ctx, data)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	http.Error(w, msg, http.StatusInternalServerError)
	slog.Error("SERVER: "+msg, "error", err)
}

func validate(d recipestore.Draft) error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("invalid category %q", d.Category)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("SERVER: Failed to encode response", "error", err)
	}
}
