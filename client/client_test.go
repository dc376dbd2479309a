package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipestore"
	"recipestore/client"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "http", baseURL: "http://localhost:8080"},
		{name: "https with trailing slash", baseURL: "https://recipes.example.com/"},
		{name: "missing scheme", baseURL: "localhost:8080", wantErr: true},
		{name: "empty", baseURL: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.NewClient(client.ClientOpts{BaseURL: tt.baseURL})
			if tt.wantErr {
				should.Error(t, err)
				return
			}
			must.NoError(t, err)
			should.NotNil(t, c)
		})
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		should.Equal(t, http.MethodGet, r.Method)
		should.Equal(t, "/recipes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"VegRecipe":[{"_id":"1","name":"Soup","category":"VegRecipe"}],"Cakes":[{"id":"7","name":"Sponge","category":"Cakes"}]}`)) // nolint: errcheck
	}))
	defer srv.Close()

	c, err := client.NewClient(client.ClientOpts{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	must.NoError(t, err)

	col, err := c.List(context.Background())
	must.NoError(t, err)

	should.Equal(t, recipestore.Collection{
		"VegRecipe": {{ID: "1", Name: "Soup", Category: recipestore.CategoryVeg}},
		"Cakes":     {{ID: "7", Name: "Sponge", Category: recipestore.CategoryCakes}},
	}, col)
}

func TestList_EmptyBody(t *testing.T) {
	c, err := client.NewClient(client.ClientOpts{
		BaseURL:    "http://recipes.test",
		HTTPClient: &mockDoer{doFunc: respond(http.StatusOK, "")},
	})
	must.NoError(t, err)

	col, err := c.List(context.Background())
	must.NoError(t, err)
	should.NotNil(t, col)
	should.Zero(t, col.Len())
}

func TestCreate(t *testing.T) {
	draft := recipestore.Draft{Name: "Salad", Category: recipestore.CategoryVeg, Ingredients: "lettuce"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		should.Equal(t, http.MethodPost, r.Method)
		should.Equal(t, "/recipes", r.URL.Path)
		should.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got recipestore.Draft
		should.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		should.Equal(t, draft, got)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(got.WithID("42")) // nolint: errcheck
	}))
	defer srv.Close()

	c, err := client.NewClient(client.ClientOpts{BaseURL: srv.URL, HTTPClient: srv.Client()})
	must.NoError(t, err)

	created, err := c.Create(context.Background(), draft)
	must.NoError(t, err)
	should.Equal(t, draft.WithID("42"), created)

	t.Run("plain text acknowledgement", func(t *testing.T) {
		c, err := client.NewClient(client.ClientOpts{
			BaseURL:    "http://recipes.test",
			HTTPClient: &mockDoer{doFunc: respond(http.StatusCreated, "Recipe created")},
		})
		must.NoError(t, err)

		created, err := c.Create(context.Background(), draft)
		must.NoError(t, err)
		should.Equal(t, draft.WithID(""), created)
	})
}

func TestUpdate(t *testing.T) {
	recipe := recipestore.Recipe{ID: "a/b", Name: "Brownie", Category: recipestore.CategoryCakes}

	t.Run("echoes body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			should.Equal(t, http.MethodPut, r.Method)
			should.Equal(t, "/recipes/a%2Fb", r.URL.EscapedPath())
			io.Copy(w, r.Body) // nolint: errcheck
		}))
		defer srv.Close()

		c, err := client.NewClient(client.ClientOpts{BaseURL: srv.URL, HTTPClient: srv.Client()})
		must.NoError(t, err)

		updated, err := c.Update(context.Background(), recipe)
		must.NoError(t, err)
		should.Equal(t, recipe, updated)
	})

	tests := []struct {
		name   string
		status int
		body   string
		want   recipestore.Recipe
	}{
		{name: "plain text acknowledgement", status: http.StatusOK, body: "Recipe field updated successfully", want: recipe},
		{name: "json message", status: http.StatusOK, body: `{"message":"ok"}`, want: recipe},
		{name: "json string", status: http.StatusOK, body: `"ok"`, want: recipe},
		{
			name:   "partial record",
			status: http.StatusOK,
			body:   `{"id":"a/b","ingredients":"cocoa"}`,
			want:   recipestore.Recipe{ID: "a/b", Name: "Brownie", Category: recipestore.CategoryCakes, Ingredients: "cocoa"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.NewClient(client.ClientOpts{
				BaseURL:    "http://recipes.test",
				HTTPClient: &mockDoer{doFunc: respond(tt.status, tt.body)},
			})
			must.NoError(t, err)

			updated, err := c.Update(context.Background(), recipe)
			must.NoError(t, err, "a 2xx reply means the write landed")
			should.Equal(t, tt.want, updated)
		})
	}

	t.Run("no content", func(t *testing.T) {
		c, err := client.NewClient(client.ClientOpts{
			BaseURL:    "http://recipes.test",
			HTTPClient: &mockDoer{doFunc: respond(http.StatusNoContent, "")},
		})
		must.NoError(t, err)

		updated, err := c.Update(context.Background(), recipe)
		must.NoError(t, err)
		should.Equal(t, recipe, updated)
	})
}

func TestDelete(t *testing.T) {
	var gotPath, gotMethod string
	c, err := client.NewClient(client.ClientOpts{
		BaseURL: "http://recipes.test",
		HTTPClient: &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
			gotPath, gotMethod = req.URL.Path, req.Method
			return respond(http.StatusNoContent, "")(req)
		}},
	})
	must.NoError(t, err)

	must.NoError(t, c.Delete(context.Background(), "9"))
	should.Equal(t, "/recipes/9", gotPath)
	should.Equal(t, http.MethodDelete, gotMethod)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		doFunc   func(req *http.Request) (*http.Response, error)
		wantKind string
		status   int
	}{
		{
			name:     "server error",
			doFunc:   respond(http.StatusInternalServerError, "boom\n"),
			wantKind: "remote",
			status:   http.StatusInternalServerError,
		},
		{
			name:     "bad request",
			doFunc:   respond(http.StatusBadRequest, "invalid category"),
			wantKind: "remote",
			status:   http.StatusBadRequest,
		},
		{
			name: "transport failure",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			wantKind: "network",
		},
		{
			name:     "malformed body",
			doFunc:   respond(http.StatusOK, "{not json"),
			wantKind: "network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.NewClient(client.ClientOpts{BaseURL: "http://recipes.test", HTTPClient: &mockDoer{doFunc: tt.doFunc}})
			must.NoError(t, err)

			_, err = c.List(context.Background())
			must.Error(t, err)
			should.Equal(t, tt.wantKind, recipestore.ErrorKind(err))

			var remoteErr *recipestore.RemoteError
			if errors.As(err, &remoteErr) {
				should.Equal(t, tt.status, remoteErr.StatusCode)
				should.Equal(t, "list recipes", remoteErr.Op)
				should.NotContains(t, remoteErr.Body, "\n")
			}
		})
	}
}
