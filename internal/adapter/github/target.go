package github

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github-cv-curator/internal/common"
)

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)

// Target is what the user pointed at: a whole account, or one repository when Repo is set.
type Target struct {
	Owner string
	Repo  string
}

// IsRepo reports whether the target names a single repository.
func (t Target) IsRepo() bool { return t.Repo != "" }

func (t Target) String() string {
	if t.IsRepo() {
		return t.Owner + "/" + t.Repo
	}
	return t.Owner
}

// ParseTarget accepts "octocat", "@octocat", "octocat/hello", "github.com/octocat",
// "https://github.com/octocat" and "https://github.com/octocat/hello(.git)".
func ParseTarget(input string) (Target, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Target{}, common.NewError(common.ErrCodeInvalidInput, "GitHub username or URL is empty")
	}

	path := strings.TrimPrefix(s, "@")
	if strings.Contains(s, "github.com") {
		raw := s
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return Target{}, common.WrapError(common.ErrCodeInvalidInput, fmt.Sprintf("cannot parse %q", input), err)
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host != "github.com" {
			return Target{}, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("%q is not a github.com URL", input))
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		// https://github.com/owner/repo/tree/main and friends
		parts = parts[:2]
	}

	t := Target{Owner: parts[0]}
	if len(parts) == 2 {
		t.Repo = strings.TrimSuffix(parts[1], ".git")
	}
	if !loginPattern.MatchString(t.Owner) {
		return Target{}, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("%q is not a valid GitHub username", t.Owner))
	}
	if len(parts) == 2 && t.Repo == "" {
		return Target{}, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("%q has an empty repository name", input))
	}
	return t, nil
}
