package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// Default grid sizes for run panels.
const (
	runStatWidth  = 6
	runStatHeight = 4
	runTSWidth    = 12
	runTSHeight   = 8
)

// RunStatus returns a stat panel showing whether the last run succeeded.
func RunStatus() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Last Run").
		Description("Result of the most recent provisioning run per cluster.").
		Height(runStatHeight).
		Span(runStatWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`%s_up{%s}`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Unit("none").
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(ColorSchemeThresholds()).
		Mappings([]dashboard.ValueMapping{
			ValueMapOnOff("FAILED", "red", "OK", "green"),
		})
}

// LastRunAge returns a stat panel showing how long ago the last run finished.
func LastRunAge() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Time Since Last Run").
		Description("Seconds since the provisioner last reported a finished run.").
		Height(runStatHeight).
		Span(runStatWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`time() - %s_last_run_timestamp_seconds{%s}`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Unit("s").
		Decimals(0).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		Thresholds(ThresholdsGreenYellowRed(86400, 172800)).
		ColorScheme(ColorSchemeThresholds())
}

// CompliantTemplates returns a stat panel showing accepted templates against
// the number a run needs.
func CompliantTemplates() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Compliant Templates").
		Description(fmt.Sprintf("Templates that passed the shape filter. A run needs %d.", RequiredTemplates)).
		Height(runStatHeight).
		Span(runStatWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`%s_templates{state="accepted", %s}`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Unit("none").
		Decimals(0).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		Thresholds(ThresholdsRedGreen(RequiredTemplates)).
		ColorScheme(ColorSchemeThresholds())
}

// RejectedTemplates returns a stat panel showing templates dropped by the filter.
func RejectedTemplates() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Rejected Templates").
		Description("Templates from the recommendations API that were dropped as malformed.").
		Height(runStatHeight).
		Span(runStatWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`%s_templates{state="rejected", %s}`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Unit("none").
		Decimals(0).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		Thresholds(ThresholdsGreenYellowRed(1, RequiredTemplates)).
		ColorScheme(ColorSchemeThresholds()).
		Mappings([]dashboard.ValueMapping{
			NoDataOK("n/a"),
		})
}

// RunDuration returns a timeseries panel showing run duration per cluster.
func RunDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Run Duration").
		Description("Wall time of each provisioning run.").
		Height(runTSHeight).
		Span(runTSWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`%s_run_duration_seconds{%s}`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Unit("s").
		Min(0).
		FillOpacity(10).
		ShowPoints(common.VisibilityModeNever).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// RunTimeline returns a timeseries panel showing run success over time.
func RunTimeline() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Run Result Timeline").
		Description("1 = the run succeeded, 0 = it failed.").
		Height(runTSHeight).
		Span(runTSWidth).
		Datasource(DSRef()).
		WithTarget(PromQuery(
			fmt.Sprintf(`%s_up{%s}`, Namespace, ClusterFilter()),
			"{{ cluster }}", "A",
		)).
		Min(-0.2).
		Max(1.2).
		LineInterpolation(common.LineInterpolationStepAfter).
		LineWidth(2).
		FillOpacity(30).
		ShowPoints(common.VisibilityModeNever).
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(ColorSchemePaletteClassic()).
		Mappings([]dashboard.ValueMapping{
			ValueMapOnOff("Failed", "red", "OK", "green"),
		})
}
