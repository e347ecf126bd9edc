package codegen

import (
	"fmt"
	"regexp"
	"strings"
)

// pullRequestRe matches a GitHub pull request URL and captures the
// "owner/repo" slug.
var pullRequestRe = regexp.MustCompile(`https://github\.com/([^/]+/[^/]+)/pull/\d+`)

// PullRequest identifies a pull request extracted from agent output.
type PullRequest struct {
	URL  string
	Repo string
}

// FindPullRequest returns the first GitHub pull request link in text.
func FindPullRequest(text string) (*PullRequest, bool) {
	match := pullRequestRe.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	return &PullRequest{URL: match[0], Repo: match[1]}, true
}

// ValidatePullRequest verifies that text links a pull request in targetRepo.
// The repository comparison is case-insensitive; an empty targetRepo accepts
// any repository.
func ValidatePullRequest(text, targetRepo string) (*PullRequest, error) {
	pr, ok := FindPullRequest(text)
	if !ok {
		return nil, fmt.Errorf("no pull request URL found in task result")
	}

	if targetRepo != "" && !strings.EqualFold(pr.Repo, targetRepo) {
		return nil, fmt.Errorf("pull request %s targets %s, expected %s", pr.URL, pr.Repo, targetRepo)
	}

	return pr, nil
}
