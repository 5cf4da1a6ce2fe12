package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v53/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

// setupMockGitHubServer 创建一个模拟的 GitHub API 服务器
func setupMockGitHubServer(t *testing.T, mux *http.ServeMux) *Fetcher {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	f := NewFetcher(client, 3, nil)
	f.retryOpts = append(f.retryOpts, common.WithInitialDelay(time.Millisecond), common.WithMaxDelay(2*time.Millisecond))
	return f
}

// createMockRepo 创建模拟的 GitHub 仓库对象
func createMockRepo(owner, name, description string, stars int, updatedAt time.Time, topics ...string) *github.Repository {
	return &github.Repository{
		Name:            github.String(name),
		FullName:        github.String(owner + "/" + name),
		Owner:           &github.User{Login: github.String(owner)},
		HTMLURL:         github.String("https://github.com/" + owner + "/" + name),
		Description:     github.String(description),
		StargazersCount: github.Int(stars),
		ForksCount:      github.Int(1),
		Topics:          topics,
		UpdatedAt:       &github.Timestamp{Time: updatedAt},
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func readmeContent(text string) *github.RepositoryContent {
	return &github.RepositoryContent{
		Type:     github.String("file"),
		Encoding: github.String("base64"),
		Content:  github.String(base64.StdEncoding.EncodeToString([]byte(text))),
	}
}

func TestFetcher_ListUserRepos(t *testing.T) {
	updated := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()

	mux.HandleFunc("/users/octo/repos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "owner", q.Get("type"))
		assert.Equal(t, "updated", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("direction"))

		if q.Get("page") == "2" {
			writeJSON(t, w, []*github.Repository{createMockRepo("octo", "gamma", "third", 1, updated.Add(-48*time.Hour))})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
		writeJSON(t, w, []*github.Repository{
			createMockRepo("octo", "alpha", "first", 42, updated, "cli", "golang"),
			createMockRepo("octo", "beta", "second", 7, updated.Add(-time.Hour)),
		})
	})
	mux.HandleFunc("/repos/octo/alpha/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{"Go": 9000, "Makefile": 120})
	})
	mux.HandleFunc("/repos/octo/beta/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{})
	})
	mux.HandleFunc("/repos/octo/gamma/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{"Python": 10})
	})
	mux.HandleFunc("/repos/octo/alpha/readme", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, readmeContent("# Alpha\nA Go CLI."))
	})
	mux.HandleFunc("/repos/octo/beta/readme", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})
	mux.HandleFunc("/repos/octo/gamma/readme", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, readmeContent("gamma"))
	})

	f := setupMockGitHubServer(t, mux)

	payloads, err := f.ListUserRepos(context.Background(), "octo", 150)
	require.NoError(t, err)
	require.Len(t, payloads, 3)

	alpha := payloads[0]
	assert.Equal(t, "octo/alpha", alpha.ID)
	assert.Equal(t, "https://github.com/octo/alpha", alpha.URL)
	assert.Equal(t, "first", alpha.Description)
	assert.Equal(t, map[string]int{"Go": 9000, "Makefile": 120}, alpha.Languages)
	assert.Equal(t, []string{"cli", "golang"}, alpha.Topics)
	assert.Equal(t, 42, alpha.Stars)
	assert.Equal(t, 1, alpha.Forks)
	assert.True(t, updated.Equal(alpha.UpdatedAt))
	assert.Equal(t, "# Alpha\nA Go CLI.", alpha.ReadmeText)

	beta := payloads[1]
	assert.Equal(t, "octo/beta", beta.ID)
	assert.Empty(t, beta.Languages)
	assert.Empty(t, beta.ReadmeText)

	assert.Equal(t, "octo/gamma", payloads[2].ID)
}

func TestFetcher_ListUserRepos_RespectsLimit(t *testing.T) {
	now := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octo/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		writeJSON(t, w, []*github.Repository{
			createMockRepo("octo", "one", "", 0, now),
			createMockRepo("octo", "two", "", 0, now),
			createMockRepo("octo", "three", "", 0, now),
		})
	})
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{"Go": 1})
	})

	f := setupMockGitHubServer(t, mux)
	payloads, err := f.ListUserRepos(context.Background(), "octo", 2)
	require.NoError(t, err)
	assert.Len(t, payloads, 2)

	_, err = f.ListUserRepos(context.Background(), "octo", 0)
	assert.Error(t, err)
}

func TestFetcher_ListUserRepos_APIError(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		expectedCalls int32
		verify        func(*testing.T, error)
	}{
		{
			name:          "404 is not retried",
			statusCode:    http.StatusNotFound,
			expectedCalls: 1,
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrNotFound)
			},
		},
		{
			name:          "401 is not retried",
			statusCode:    http.StatusUnauthorized,
			expectedCalls: 1,
		},
		{
			name:          "500 is retried",
			statusCode:    http.StatusInternalServerError,
			expectedCalls: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("/users/ghost/repos", func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"message": "nope"}`))
			})

			f := setupMockGitHubServer(t, mux)
			payloads, err := f.ListUserRepos(context.Background(), "ghost", 10)

			require.Error(t, err)
			assert.Nil(t, payloads)
			assert.Equal(t, common.ErrCodeGitHubAPI, common.CodeOf(err))
			assert.Equal(t, tt.expectedCalls, calls.Load())
			if tt.verify != nil {
				tt.verify(t, err)
			}
		})
	}
}

func TestFetcher_GetRepo(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/solo", func(w http.ResponseWriter, r *http.Request) {
		repo := createMockRepo("octo", "solo", "single", 5, now)
		repo.Archived = github.Bool(true)
		writeJSON(t, w, repo)
	})
	mux.HandleFunc("/repos/octo/solo/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{"Rust": 77})
	})
	mux.HandleFunc("/repos/octo/solo/readme", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, readmeContent("solo readme"))
	})

	f := setupMockGitHubServer(t, mux)

	payload, err := f.GetRepo(context.Background(), "octo", "solo")
	require.NoError(t, err)
	assert.Equal(t, domain.RawRepoPayload{
		ID:          "octo/solo",
		URL:         "https://github.com/octo/solo",
		Description: "single",
		Languages:   map[string]int{"Rust": 77},
		Stars:       5,
		Forks:       1,
		Archived:    true,
		UpdatedAt:   payload.UpdatedAt,
		ReadmeText:  "solo readme",
	}, payload)
	assert.True(t, now.Equal(payload.UpdatedAt))

	_, err = f.GetRepo(context.Background(), "octo", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input   string
		want    Target
		wantErr bool
	}{
		{input: "octocat", want: Target{Owner: "octocat"}},
		{input: " @octocat ", want: Target{Owner: "octocat"}},
		{input: "octocat/hello-world", want: Target{Owner: "octocat", Repo: "hello-world"}},
		{input: "github.com/octocat", want: Target{Owner: "octocat"}},
		{input: "https://github.com/octocat/", want: Target{Owner: "octocat"}},
		{input: "https://www.github.com/octocat/hello.git", want: Target{Owner: "octocat", Repo: "hello"}},
		{input: "https://github.com/octocat/hello/tree/main/docs", want: Target{Owner: "octocat", Repo: "hello"}},
		{input: "", wantErr: true},
		{input: "https://github.com/", wantErr: true},
		{input: "https://gitlab.com/octocat", wantErr: true},
		{input: "bad_name!", wantErr: true},
		{input: "-leadingdash", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "octocat/hello", Target{Owner: "octocat", Repo: "hello"}.String())
	assert.False(t, Target{Owner: "octocat"}.IsRepo())
}
