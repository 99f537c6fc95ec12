// Package status reports the state of every manifest checkout without changing it.
package status

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/workspace"
)

const (
	originRemoteNameConstant               = "origin"
	remoteSectionNameConstant              = "remote"
	pushURLOptionNameConstant              = "pushurl"
	shortHashLengthConstant                = 7
	detachedBranchConstant                 = "(detached)"
	redactedPasswordConstant               = ":xxxxx@"
	maskedPasswordConstant                 = ":" + execshell.RedactionMask + "@"
	describeFailedMessageConstant          = "unable to read repository metadata"
	classifierNotConfiguredMessageConstant = "status: checkout classifier not configured"
	logFieldRepositoryConstant             = "repository"
	logFieldPathConstant                   = "path"
)

// ErrClassifierNotConfigured indicates a nil classifier was supplied.
var ErrClassifierNotConfigured = errors.New(classifierNotConfiguredMessageConstant)

// CheckoutClassifier derives the state of a checkout directory.
type CheckoutClassifier interface {
	Classify(executionContext context.Context, path string) workspace.Classification
}

// Entry describes one manifest checkout.
type Entry struct {
	Name        string
	Ref         string
	Destination string
	State       workspace.Classification
	Branch      string
	Head        string
	FetchURL    string
	PushURL     string
}

// Reporter collects Entries for manifest specs.
type Reporter struct {
	classifier    CheckoutClassifier
	depsDirectory string
	logger        *zap.Logger
}

// NewReporter constructs a Reporter for checkouts under depsDirectory.
func NewReporter(classifier CheckoutClassifier, depsDirectory string, logger *zap.Logger) (*Reporter, error) {
	if classifier == nil {
		return nil, ErrClassifierNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{classifier: classifier, depsDirectory: depsDirectory, logger: logger}, nil
}

// Collect describes every spec in name order.
func (reporter *Reporter) Collect(executionContext context.Context, specs []manifest.RepoSpec) []Entry {
	ordered := manifest.Sorted(specs)
	entries := make([]Entry, 0, len(ordered))
	for _, spec := range ordered {
		destination := filepath.Join(reporter.depsDirectory, spec.Name)
		entry := Entry{
			Name:        spec.Name,
			Ref:         spec.Ref,
			Destination: destination,
			State:       reporter.classifier.Classify(executionContext, destination),
		}
		if !entry.State.NeedsClone() {
			if describeError := describeRepository(destination, &entry); describeError != nil {
				reporter.logger.Warn(describeFailedMessageConstant,
					zap.String(logFieldRepositoryConstant, spec.Name),
					zap.String(logFieldPathConstant, destination),
					zap.Error(describeError),
				)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// describeRepository fills HEAD and origin details of the checkout at path.
func describeRepository(path string, entry *Entry) error {
	repository, openError := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if openError != nil {
		return openError
	}

	head, headError := repository.Head()
	switch {
	case headError == nil:
		entry.Head = shortHash(head.Hash())
		entry.Branch = detachedBranchConstant
		if head.Name().IsBranch() {
			entry.Branch = head.Name().Short()
		}
	case errors.Is(headError, plumbing.ErrReferenceNotFound):
	default:
		return headError
	}

	remote, remoteError := repository.Remote(originRemoteNameConstant)
	if errors.Is(remoteError, git.ErrRemoteNotFound) {
		return nil
	}
	if remoteError != nil {
		return remoteError
	}
	if fetchURLs := remote.Config().URLs; len(fetchURLs) > 0 {
		entry.FetchURL = MaskCredentials(fetchURLs[0])
	}

	configuration, configurationError := repository.Config()
	if configurationError != nil {
		return configurationError
	}
	pushURL := configuration.Raw.Section(remoteSectionNameConstant).Subsection(originRemoteNameConstant).Option(pushURLOptionNameConstant)
	entry.PushURL = MaskCredentials(pushURL)
	return nil
}

func shortHash(hash plumbing.Hash) string {
	rendered := hash.String()
	if len(rendered) > shortHashLengthConstant {
		return rendered[:shortHashLengthConstant]
	}
	return rendered
}

// MaskCredentials hides the password of a URL. Values that do not parse as URLs are returned unchanged.
func MaskCredentials(rawURL string) string {
	parsedURL, parseError := url.Parse(rawURL)
	if parseError != nil || parsedURL.User == nil {
		return rawURL
	}
	if _, hasPassword := parsedURL.User.Password(); !hasPassword {
		return rawURL
	}
	return strings.Replace(parsedURL.Redacted(), redactedPasswordConstant, maskedPasswordConstant, 1)
}
