package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/table"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// Default grid sizes for rule group panels.
const (
	groupTableWidth  = 16
	groupTableHeight = 10
	groupStatWidth   = 8
	groupTSWidth     = 24
	groupTSHeight    = 8
)

// GroupsProvisioned returns a table panel listing each rule group and whether
// the last run wrote it.
func GroupsProvisioned() *table.PanelBuilder {
	return table.NewPanelBuilder().
		Title("Rule Groups").
		Description("Rule groups written by the last run. Failed groups show red.").
		Height(groupTableHeight).
		Span(groupTableWidth).
		Datasource(DSRef()).
		WithTarget(PromInstantQuery(
			fmt.Sprintf(`%s_rule_group_provisioned{%s}`, Namespace, ClusterFilter()),
			"", "A",
		)).
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(ColorSchemeThresholds()).
		OverrideByName("Value", []dashboard.DynamicConfigValue{
			{Id: "displayName", Value: "Provisioned"},
			{Id: "mappings", Value: []dashboard.ValueMapping{ValueMapOnOff("FAILED", "red", "OK", "green")}},
			{Id: "custom.cellOptions", Value: map[string]any{"type": "color-background"}},
		}).
		OverrideByName("rule_group", []dashboard.DynamicConfigValue{
			{Id: "custom.width", Value: 420},
		}).
		CellHeight(common.TableCellHeightSm).
		ShowHeader(true).
		WithTransformation(organizeTransform(map[string]any{
			"rule_group": "Rule Group",
			"cluster":    "Cluster",
		}))
}

// GroupsEnabled returns a stat panel counting enabled rule groups per cluster.
func GroupsEnabled() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Enabled Rule Groups").
		Description("Rule groups provisioned enabled. Windows groups stay disabled unless requested.").
		Height(groupTableHeight).
		Span(groupStatWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`sum by (cluster) (%s_rule_group_enabled{%s})`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Unit("none").
		Decimals(0).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		Thresholds(ThresholdsRedGreen(2)).
		ColorScheme(ColorSchemeThresholds())
}

// AttemptsOverTime returns a timeseries panel showing PUT attempts per rule
// group and result.
func AttemptsOverTime() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("PUT Attempts").
		Description("Attempts per rule group in each run. More than one means the group was retried.").
		Height(groupTSHeight).
		Span(groupTSWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`%s_rule_group_attempts_total{%s}`, Namespace, ClusterFilter()),
			"{{ rule_group }} {{ result }}", "A",
		)).
		Unit("none").
		Min(0).
		LineInterpolation(common.LineInterpolationStepAfter).
		FillOpacity(10).
		ShowPoints(common.VisibilityModeNever).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}
