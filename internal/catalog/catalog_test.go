// Copyright 2024 The mus-fuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchParsesCatalogAndSendsAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/songs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"t1","path":"/a.mp3","size":2000000,"artist":"Test"}]`))
	}))
	defer srv.Close()

	tracks, err := Fetch(context.Background(), srv.Client(), srv.URL, BasicAuthHeader("bob", "secret"))
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, "/a.mp3", tracks[0].Path)
	assert.EqualValues(t, 2000000, tracks[0].Size)
	assert.Equal(t, "Test", tracks[0].Artist)
	assert.Contains(t, gotAuth, "Basic ")
}

func TestFetchOmitsAuthHeaderWhenNoCredentials(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL, BasicAuthHeader("", ""))
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestFetchFailsOnMissingPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"t1","size":10}]`))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL, "")
	assert.Error(t, err)
}

func TestFetchFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL, "")
	assert.Error(t, err)
}
