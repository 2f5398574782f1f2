package recordingrules

import (
	"fmt"
	"strings"
)

// EnableWindowsRecordingRules is the raw parameter that turns on the Windows
// rule groups. Only the boolean true enables them.
const EnableWindowsRecordingRules = "enable_windows_recording_rules"

// Params identifies the cluster and workspace to provision rule groups for.
type Params struct {
	ClusterSubscription  string
	ClusterResourceGroup string
	ClusterName          string
	WorkspaceResourceID  string
	Region               string

	// Raw holds caller options such as EnableWindowsRecordingRules.
	Raw map[string]any
}

// Validate checks that every identifier is set.
func (p Params) Validate() error {
	var missing []string

	for _, f := range []struct {
		name  string
		value string
	}{
		{"cluster subscription", p.ClusterSubscription},
		{"cluster resource group", p.ClusterResourceGroup},
		{"cluster name", p.ClusterName},
		{"workspace resource id", p.WorkspaceResourceID},
		{"region", p.Region},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
	}

	return nil
}

// WindowsRulesEnabled reports whether raw carries the boolean true for
// EnableWindowsRecordingRules. Strings, numbers, and absence all mean false.
func WindowsRulesEnabled(raw map[string]any) bool {
	v, ok := raw[EnableWindowsRecordingRules].(bool)
	return ok && v
}
