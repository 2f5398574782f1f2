// Package dashboards provides functions that build complete Grafana dashboard
// definitions using the Foundation SDK. Each function returns a configured
// DashboardBuilder ready to be built and serialized to JSON.
package dashboards

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/aks_rules_provisioner/tools/dashgen/panels"
)

// BuildProvisioning creates the provisioning dashboard: run outcome, template
// counts, and per rule group results.
func BuildProvisioning() (*dashboard.DashboardBuilder, error) {
	b := dashboard.NewDashboardBuilder("AKS Recording Rules").
		Uid("aks-rules-provisioning").
		Tags([]string{"aks", "prometheus", "recording-rules"}).
		Refresh("1m").
		Time("now-7d", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair)

	b = b.WithVariable(datasourceVar()).
		WithVariable(clusterVar())

	b = b.WithRow(dashboard.NewRowBuilder("Run")).
		WithPanel(panels.RunStatus()).
		WithPanel(panels.LastRunAge()).
		WithPanel(panels.CompliantTemplates()).
		WithPanel(panels.RejectedTemplates()).
		WithPanel(panels.RunDuration()).
		WithPanel(panels.RunTimeline())

	b = b.WithRow(dashboard.NewRowBuilder("Rule Groups")).
		WithPanel(panels.GroupsProvisioned()).
		WithPanel(panels.GroupsEnabled()).
		WithPanel(panels.AttemptsOverTime())

	return b, nil
}

// datasourceVar returns the common "datasource" template variable.
func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Data Source").
		Type("prometheus")
}

// clusterVar returns the "cluster" template variable.
func clusterVar() *dashboard.QueryVariableBuilder {
	return dashboard.NewQueryVariableBuilder("cluster").
		Label("Cluster").
		Datasource(panels.DSRef()).
		Query(dashboard.StringOrMap{String: cog.ToPtr(fmt.Sprintf("label_values(%s_up, cluster)", panels.Namespace))}).
		Refresh(dashboard.VariableRefreshOnTimeRangeChanged).
		Sort(dashboard.VariableSortAlphabeticalAsc).
		Multi(true).
		IncludeAll(true)
}
