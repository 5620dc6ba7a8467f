package patch

// Sections of the agent configuration file.
const (
	SectionML2           = "ml2"
	SectionML2TypeFlat   = "ml2_type_flat"
	SectionML2TypeVLAN   = "ml2_type_vlan"
	SectionSecurityGroup = "securitygroup"
	SectionAgent         = "AGENT"
	SectionAgentCLI      = "AGENT_CLI"
	SectionNSXV3         = "NSXV3"
)

// defaultDirectives is the desired final state of the agent configuration.
// Each option takes its value from the variable of the same name.
var defaultDirectives = []Directive{
	{SectionML2, "mechanism_drivers", "{{mechanism_drivers}}"},
	{SectionML2, "type_drivers", "{{type_drivers}}"},
	{SectionML2, "tenant_network_types", "{{tenant_network_types}}"},

	{SectionML2TypeFlat, "flat_networks", "{{flat_networks}}"},

	{SectionML2TypeVLAN, "network_vlan_ranges", "{{network_vlan_ranges}}"},

	{SectionSecurityGroup, "enable_security_group", "{{enable_security_group}}"},
	{SectionSecurityGroup, "firewall_driver", "{{firewall_driver}}"},

	{SectionAgent, "polling_interval", "{{polling_interval}}"},
	{SectionAgent, "quitting_rpc_timeout", "{{quitting_rpc_timeout}}"},
	{SectionAgent, "agent_id", "{{agent_id}}"},
	{SectionAgent, "sync_full_schedule", "{{sync_full_schedule}}"},
	{SectionAgent, "rpc_max_records_per_query", "{{rpc_max_records_per_query}}"},
	{SectionAgent, "enable_runtime_migration_from_dvs_driver", "{{enable_runtime_migration_from_dvs_driver}}"},

	{SectionAgentCLI, "neutron_security_group_id", "{{neutron_security_group_id}}"},
	{SectionAgentCLI, "neutron_port_id", "{{neutron_port_id}}"},
	{SectionAgentCLI, "neutron_qos_policy_id", "{{neutron_qos_policy_id}}"},

	{SectionNSXV3, "nsxv3_connection_retry_count", "{{nsxv3_connection_retry_count}}"},
	{SectionNSXV3, "nsxv3_connection_retry_sleep", "{{nsxv3_connection_retry_sleep}}"},
	{SectionNSXV3, "nsxv3_request_timeout", "{{nsxv3_request_timeout}}"},
	{SectionNSXV3, "nsxv3_requests_per_second", "{{nsxv3_requests_per_second}}"},
	{SectionNSXV3, "nsxv3_concurrent_requests", "{{nsxv3_concurrent_requests}}"},
	{SectionNSXV3, "nsxv3_login_user", "{{nsxv3_login_user}}"},
	{SectionNSXV3, "nsxv3_login_password", "{{nsxv3_login_password}}"},
	{SectionNSXV3, "nsxv3_login_hostname", "{{nsxv3_login_hostname}}"},
	{SectionNSXV3, "nsxv3_login_port", "{{nsxv3_login_port}}"},
	{SectionNSXV3, "nsxv3_transport_zone_name", "{{nsxv3_transport_zone_name}}"},
	{SectionNSXV3, "nsxv3_suppress_ssl_wornings", "{{nsxv3_suppress_ssl_wornings}}"},
	{SectionNSXV3, "nsxv3_managed_hosts", "{{nsxv3_managed_hosts}}"},
	{SectionNSXV3, "nsxv3_max_records_per_query", "{{nsxv3_max_records_per_query}}"},
}

// DefaultDirectives returns a copy of the fixed directive list.
func DefaultDirectives() []Directive {
	out := make([]Directive, len(defaultDirectives))
	copy(out, defaultDirectives)
	return out
}
