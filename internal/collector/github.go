package collector

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

const (
	releasesPerRepo = 5

	// Unauthenticated GitHub allows 60 requests/hour; authenticated 5000.
	// One request per second with a small burst stays comfortably inside
	// the authenticated budget and spreads unauthenticated usage.
	githubRequestsPerSecond = 1
	githubBurst             = 3
)

// GitHub collects recent releases from the configured owner/repo pairs.
type GitHub struct {
	client  *gh.Client
	repos   []string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGitHub builds the releases collector. An empty token yields an
// unauthenticated client, which works for public repos at a lower rate
// limit.
func NewGitHub(token string, repos []string, logger zerolog.Logger) *GitHub {
	var client *gh.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(context.Background(), ts)
		tc.Timeout = defaultTimeout
		client = gh.NewClient(tc)
	} else {
		client = gh.NewClient(newHTTPClient())
	}

	return &GitHub{
		client:  client,
		repos:   repos,
		limiter: rate.NewLimiter(rate.Limit(githubRequestsPerSecond), githubBurst),
		logger:  logger,
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Collect(ctx context.Context) ([]model.Signal, error) {
	var signals []model.Signal
	var failures []string

	for _, repo := range g.repos {
		owner, name, ok := splitRepo(repo)
		if !ok {
			g.logger.Warn().Str("repo", repo).Msg("skipping malformed repo, expected owner/name")
			continue
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return signals, fmt.Errorf("rate limit wait: %w", err)
		}

		releases, _, err := g.client.Repositories.ListReleases(ctx, owner, name, &gh.ListOptions{
			PerPage: releasesPerRepo,
		})
		if err != nil {
			g.logger.Warn().Err(err).Str("repo", repo).Msg("failed to list releases")
			failures = append(failures, repo)
			continue
		}

		for _, rel := range releases {
			signals = append(signals, releaseSignal(repo, rel))
		}
	}

	if len(signals) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all %d github repos failed (first: %s)", len(failures), failures[0])
	}
	return signals, nil
}

func releaseSignal(repo string, rel *gh.RepositoryRelease) model.Signal {
	title := rel.GetName()
	if title == "" {
		title = rel.GetTagName()
	}

	sig := model.Signal{
		Source:   repo,
		Title:    fmt.Sprintf("%s %s", repo, title),
		Link:     rel.GetHTMLURL(),
		Content:  truncate(collapseWhitespace(rel.GetBody()), maxContentLength),
		Channel:  model.ChannelGitHub,
		Category: "release",
	}
	if ts := rel.GetPublishedAt(); !ts.IsZero() {
		sig.Time = ts.Time
	}
	return sig
}

func splitRepo(repo string) (owner, name string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(repo), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
