package taxonomy

// layoutOrder is the default sibling rank table. Entries are resource types
// without their provider namespace. External entry points come first,
// followed by the network core, the virtual network itself, workloads, data
// and management resources.
//
// Two orderings are load-bearing: publicipaddresses ranks before
// virtualnetworks, and virtualnetworks/subnets ranks before virtualnetworks.
var layoutOrder = []string{
	// External connectivity
	"publicipaddresses",
	"frontdoors",
	"trafficmanagerprofiles",
	"expressroutecircuits",
	// Network core
	"azurefirewalls",
	"loadbalancers",
	"applicationgateways",
	"bastionhosts",
	"natgateways",
	"virtualnetworkgateways",
	"localnetworkgateways",
	"connections",
	"virtualnetworkpeerings",
	// VNet / Subnet
	"networkinterfaces",
	"virtualnetworks/subnets",
	"virtualnetworks",
	"networksecuritygroups",
	"routetables",
	"privateendpoints",
	"privatelinkservices",
	// Workloads
	"virtualmachines",
	"virtualmachinescalesets",
	"managedclusters",
	"containerapps",
	"sites",
	"serverfarms",
	// Data
	"disks",
	"storageaccounts",
	"servers",
	"databaseaccounts",
	// Management
	"networkwatchers",
}

const lib = "img/lib/azure2/"

var defaultIcons = map[string]string{
	// Compute
	"microsoft.compute/virtualmachines":         lib + "compute/Virtual_Machine.svg",
	"microsoft.compute/disks":                   lib + "compute/Disks.svg",
	"microsoft.compute/availabilitysets":        lib + "compute/Availability_Sets.svg",
	"microsoft.compute/virtualmachinescalesets": lib + "compute/VM_Scale_Sets.svg",
	"microsoft.compute/restorepointcollections": lib + "compute/Disks.svg",

	// Networking
	"microsoft.network/virtualnetworks":         lib + "networking/Virtual_Networks.svg",
	"microsoft.network/virtualnetworks/subnets": lib + "networking/Subnet.svg",
	"microsoft.network/networkinterfaces":       lib + "networking/Network_Interfaces.svg",
	"microsoft.network/publicipaddresses":       lib + "networking/Public_IP_Addresses.svg",
	"microsoft.network/networksecuritygroups":   lib + "networking/Network_Security_Groups.svg",
	"microsoft.network/loadbalancers":           lib + "networking/Load_Balancers.svg",
	"microsoft.network/applicationgateways":     lib + "networking/Application_Gateways.svg",
	"microsoft.network/networkwatchers":         lib + "networking/Network_Watcher.svg",
	"microsoft.network/connections":             lib + "networking/Connections.svg",
	"microsoft.network/azurefirewalls":          lib + "networking/Firewalls.svg",
	"microsoft.network/firewallpolicies":        lib + "networking/Firewalls.svg",
	"microsoft.network/bastionhosts":            lib + "networking/Bastions.svg",
	"microsoft.network/natgateways":             lib + "networking/NAT.svg",
	"microsoft.network/routetables":             lib + "networking/Route_Tables.svg",
	"microsoft.network/privateendpoints":        lib + "networking/Private_Endpoint.svg",
	"microsoft.network/virtualnetworkgateways":  lib + "networking/Virtual_Network_Gateways.svg",
	"microsoft.network/expressroutecircuits":    lib + "networking/ExpressRoute_Circuits.svg",
	"microsoft.network/frontdoors":              lib + "networking/Front_Doors.svg",
	"microsoft.network/dnszones":                lib + "networking/DNS_Zones.svg",
	"microsoft.network/privatednszones":         lib + "networking/DNS_Zones.svg",
	"microsoft.network/trafficmanagerprofiles":  lib + "networking/Traffic_Manager_Profiles.svg",
	"microsoft.network/virtualnetworkpeerings":  lib + "other/Peerings.svg",
	"microsoft.network/localnetworkgateways":    lib + "other/Local_Network_Gateways.svg",
	"microsoft.network/privatelinkservices":     lib + "networking/Private_Link.svg",
	"microsoft.cdn/profiles":                    lib + "networking/Front_Doors.svg",

	// Storage
	"microsoft.storage/storageaccounts": lib + "storage/Storage_Accounts.svg",

	// Web
	"microsoft.web/sites":       lib + "compute/App_Services.svg",
	"microsoft.web/serverfarms": lib + "compute/App_Service_Plans.svg",

	// Databases
	"microsoft.sql/servers":                     lib + "databases/SQL_Database.svg",
	"microsoft.documentdb/databaseaccounts":     lib + "databases/Azure_Cosmos_DB.svg",
	"microsoft.dbforpostgresql/flexibleservers": lib + "databases/Azure_Database_PostgreSQL_Server.svg",
	"microsoft.dbformysql/flexibleservers":      lib + "databases/Azure_Database_MySQL_Server.svg",
	"microsoft.cache/redis":                     lib + "databases/Cache_Redis.svg",

	// Security and identity
	"microsoft.keyvault/vaults":                        lib + "security/Key_Vaults.svg",
	"microsoft.managedidentity/userassignedidentities": lib + "identity/Azure_Active_Directory.svg",

	// Containers
	"microsoft.containerregistry/registries":     lib + "containers/Container_Registries.svg",
	"microsoft.containerservice/managedclusters": lib + "compute/Azure_Kubernetes_Service.svg",
	"microsoft.app/containerapps":                lib + "other/Worker_Container_App.svg",
	"microsoft.app/managedenvironments":          lib + "other/Container_App_Environments.svg",

	// AI / ML
	"microsoft.machinelearningservices/workspaces": lib + "ai_machine_learning/Machine_Learning.svg",
	"microsoft.cognitiveservices/accounts":         lib + "ai_machine_learning/Cognitive_Services.svg",
	"microsoft.search/searchservices":              lib + "ai_machine_learning/Cognitive_Services.svg",
	"microsoft.botservice/botservices":             lib + "ai_machine_learning/Bot_Services.svg",

	// Monitoring and management
	"microsoft.insights/components":                      lib + "management_governance/Application_Insights.svg",
	"microsoft.insights/actiongroups":                    lib + "management_governance/Monitor.svg",
	"microsoft.operationalinsights/workspaces":           lib + "management_governance/Log_Analytics_Workspaces.svg",
	"microsoft.alertsmanagement/smartdetectoralertrules": lib + "management_governance/Monitor.svg",
	"microsoft.operationsmanagement/solutions":           lib + "management_governance/Monitor.svg",
	"microsoft.portal/dashboards":                        lib + "management_governance/Monitor.svg",
	"microsoft.automation/automationaccounts":            lib + "management_governance/Automation_Accounts.svg",
	"microsoft.recoveryservices/vaults":                  lib + "management_governance/Recovery_Services_Vaults.svg",
	"microsoft.dataprotection/backupvaults":              lib + "management_governance/Recovery_Services_Vaults.svg",
	"microsoft.resources/templatespecs":                  lib + "management_governance/Policy.svg",

	// Integration and DevOps
	"microsoft.logic/workflows":  lib + "integration/Logic_Apps.svg",
	"microsoft.devops/pipelines": lib + "devops/Azure_DevOps.svg",
	"microsoft.devtestlab/labs":  lib + "devops/DevTest_Labs.svg",
}

var defaultPalette = []string{
	"#E53935", "#8E24AA", "#3949AB", "#039BE5", "#00897B",
	"#7CB342", "#FDD835", "#FB8C00", "#6D4C41", "#546E7A",
	"#D81B60", "#5E35B1", "#1E88E5", "#00ACC1", "#43A047",
	"#F4511E", "#FFB300", "#8D6E63", "#78909C", "#AB47BC",
}
