package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/hmdraft/errors"
)

// Build information. These variables are set at build time via ldflags.
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// APIVersion is the version of the Drafts RPC contract. Bumped on any
// change to request/response shapes or change-list semantics.
const APIVersion = "1.1.0"

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		APIVersion: APIVersion,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("hmdraft %s (api %s, commit %s, built %s)", i.Version, i.APIVersion, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("hmdraft dev (api %s, commit %s, built %s)", i.APIVersion, i.CommitHash, i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// CheckAPI reports whether a peer's API version satisfies constraint.
// An empty constraint accepts anything.
func CheckAPI(constraint, apiVersion string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid API constraint %q", constraint)
	}
	v, err := semver.NewVersion(apiVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid API version %q", apiVersion)
	}
	if ok, reasons := c.Validate(v); !ok {
		err := errors.Newf("daemon API %s does not satisfy %s", apiVersion, constraint)
		for _, r := range reasons {
			err = errors.WithDetail(err, r.Error())
		}
		return errors.WithHint(err, "upgrade hmdraft so client and daemon agree")
	}
	return nil
}
