package nodedir

// NodeDescriptor is one entry from the node provisioning service. Descriptors
// are immutable once fetched; refreshes replace the cached list wholesale.
type NodeDescriptor struct {
	ID       string    `json:"id"`
	Network  string    `json:"network"`
	Status   string    `json:"status"`
	Endpoint Endpoints `json:"endpoints"`
	Auth     Auth      `json:"auth"`
}

// Endpoints is the bag of optional URL fields a node may expose. Which fields
// are set depends on the chain family.
type Endpoints struct {
	HTTPS     string `json:"https,omitempty"`
	WSS       string `json:"wss,omitempty"`
	Beacon    string `json:"beacon,omitempty"`
	TONV2     string `json:"ton_v2,omitempty"`
	TONV3     string `json:"ton_v3,omitempty"`
	AptosREST string `json:"aptos,omitempty"`
}

// Auth holds the per-node credentials. Either basic auth or an API key may be
// set; both empty means the node is unauthenticated.
type Auth struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// StatusRunning is the only node status considered usable.
const StatusRunning = "running"

type listNodesResponse struct {
	Nodes []NodeDescriptor `json:"nodes"`
}
