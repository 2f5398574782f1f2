// Package panels provides reusable Grafana panel builder functions for the
// provisioning dashboard. Each function returns a cog.Builder[dashboard.Panel]
// that can be added to any dashboard.
package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
)

// Namespace is the Prometheus metric prefix used in all PromQL expressions.
const Namespace = "aks_rules"

// RequiredTemplates is the number of compliant templates a run needs.
const RequiredTemplates = 4

// DSRef returns a DataSourceRef pointing at the $datasource template variable.
func DSRef() common.DataSourceRef {
	return common.DataSourceRef{
		Type: cog.ToPtr("prometheus"),
		Uid:  cog.ToPtr("${datasource}"),
	}
}

// PromQuery creates a Prometheus range query builder with common defaults.
func PromQuery(expr, legendFormat, refID string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().
		Expr(expr).
		LegendFormat(legendFormat).
		RefId(refID)
}

// PromInstantQuery creates a Prometheus instant query builder for table panels.
func PromInstantQuery(expr, legendFormat, refID string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().
		Expr(expr).
		LegendFormat(legendFormat).
		RefId(refID).
		Instant().
		Format(prometheus.PromQueryFormatTable)
}

// ThresholdsGreenOnly returns a threshold config with a single green step.
func ThresholdsGreenOnly() *dashboard.ThresholdsConfigBuilder {
	return dashboard.NewThresholdsConfigBuilder().
		Mode(dashboard.ThresholdsModeAbsolute).
		Steps([]dashboard.Threshold{
			{Value: nil, Color: "green"},
		})
}

// ThresholdsRedGreen returns a threshold config that shows red below the
// threshold value and green at or above it.
func ThresholdsRedGreen(greenAbove float64) *dashboard.ThresholdsConfigBuilder {
	return dashboard.NewThresholdsConfigBuilder().
		Mode(dashboard.ThresholdsModeAbsolute).
		Steps([]dashboard.Threshold{
			{Value: nil, Color: "red"},
			{Value: cog.ToPtr(greenAbove), Color: "green"},
		})
}

// ThresholdsGreenYellowRed returns a threshold config with green (base),
// yellow at a warning level, and red at a critical level.
func ThresholdsGreenYellowRed(yellow, red float64) *dashboard.ThresholdsConfigBuilder {
	return dashboard.NewThresholdsConfigBuilder().
		Mode(dashboard.ThresholdsModeAbsolute).
		Steps([]dashboard.Threshold{
			{Value: nil, Color: "green"},
			{Value: cog.ToPtr(yellow), Color: "yellow"},
			{Value: cog.ToPtr(red), Color: "red"},
		})
}

// ColorSchemeThresholds returns a FieldColor configured for threshold-based coloring.
func ColorSchemeThresholds() *dashboard.FieldColorBuilder {
	return dashboard.NewFieldColorBuilder().
		Mode(dashboard.FieldColorModeIdThresholds)
}

// ColorSchemePaletteClassic returns a FieldColor configured for the classic
// multi-color palette.
func ColorSchemePaletteClassic() *dashboard.FieldColorBuilder {
	return dashboard.NewFieldColorBuilder().
		Mode(dashboard.FieldColorModeIdPaletteClassic)
}

// ValueMapOnOff maps 0 and 1 to display text and colors.
func ValueMapOnOff(offText, offColor, onText, onColor string) dashboard.ValueMapping {
	return dashboard.ValueMapping{
		ValueMap: &dashboard.ValueMap{
			Type: dashboard.MappingTypeValueToText,
			Options: map[string]dashboard.ValueMappingResult{
				"0": {Text: cog.ToPtr(offText), Color: cog.ToPtr(offColor), Index: cog.ToPtr[int32](0)},
				"1": {Text: cog.ToPtr(onText), Color: cog.ToPtr(onColor), Index: cog.ToPtr[int32](1)},
			},
		},
	}
}

// NoDataOK maps a missing series to an OK text.
func NoDataOK(text string) dashboard.ValueMapping {
	return dashboard.ValueMapping{
		SpecialValueMap: &dashboard.SpecialValueMap{
			Type: dashboard.MappingTypeSpecialValue,
			Options: dashboard.DashboardSpecialValueMapOptions{
				Match:  dashboard.SpecialValueMatchNullAndNan,
				Result: dashboard.ValueMappingResult{Text: cog.ToPtr(text), Color: cog.ToPtr("green"), Index: cog.ToPtr[int32](0)},
			},
		},
	}
}

// ClusterFilter returns the PromQL cluster label filter for the $cluster variable.
func ClusterFilter() string {
	return `cluster=~"$cluster"`
}

// organizeTransform returns a DataTransformerConfig that hides internal labels
// and renames columns for table panels.
func organizeTransform(rename map[string]any) dashboard.DataTransformerConfig {
	return dashboard.DataTransformerConfig{
		Id: "organize",
		Options: map[string]any{
			"excludeByName": map[string]any{
				"Time":     true,
				"__name__": true,
				"instance": true,
				"job":      true,
			},
			"indexByName":  map[string]any{},
			"renameByName": rename,
		},
	}
}
