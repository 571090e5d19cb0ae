package providers

import "fmt"

// MissingProviderError reports that a tenant's chosen provider could not
// be constructed: either the worker has no API key for it or the provider
// is not supported for that stage. It names the stage and provider so
// operators can remediate the tenant's configuration.
type MissingProviderError struct {
	Stage    Stage
	Provider string
	Reason   string
}

func (e *MissingProviderError) Error() string {
	return fmt.Sprintf("providers: %s provider %q unavailable: %s", e.Stage, e.Provider, e.Reason)
}

func missing(stage Stage, provider, reason string) *MissingProviderError {
	return &MissingProviderError{Stage: stage, Provider: provider, Reason: reason}
}
