package registry

import (
	"context"
	"fmt"
)

// ValidationResult is computed fresh for every deployment run and never
// stored anywhere.
type ValidationResult struct {
	PackageExists    bool
	VersionIsHigher  bool
	CallerCanPublish bool

	// Messages carry the human-readable sub-causes for a rejection.
	Messages []string
}

// CanPublish reports whether the deployment may proceed.
func (r *ValidationResult) CanPublish() bool {
	return r.VersionIsHigher && (!r.PackageExists || r.CallerCanPublish)
}

// ValidatePackage composes the registry checks for one candidate release.
//
// A package that does not exist yet is always publishable and the ownership
// check is skipped entirely. An existing package requires the candidate
// version to be strictly higher than the published latest AND the caller to
// hold publish permission. The permission call is only issued once the
// version check has passed, since its cost is not justified otherwise.
func (c *Client) ValidatePackage(ctx context.Context, name, version, token string) (*ValidationResult, error) {
	state, err := c.FetchPackageState(ctx, name)
	if err != nil {
		return nil, err
	}

	if !state.Exists {
		return &ValidationResult{
			PackageExists:    false,
			VersionIsHigher:  true,
			CallerCanPublish: true,
			Messages:         []string{fmt.Sprintf("package %s is not published yet, first publish always allowed", name)},
		}, nil
	}

	result := &ValidationResult{PackageExists: true}
	result.VersionIsHigher = CompareVersions(version, state.LatestVersion) > 0
	if !result.VersionIsHigher {
		result.Messages = append(result.Messages,
			fmt.Sprintf("version %s is not higher than published %s", version, state.LatestVersion))
		return result, nil
	}

	allowed, err := c.CheckPublishPermission(ctx, name, token)
	if err != nil {
		return nil, err
	}
	result.CallerCanPublish = allowed
	if !allowed {
		result.Messages = append(result.Messages,
			fmt.Sprintf("registry token lacks publish permission for %s", name))
	}
	return result, nil
}
