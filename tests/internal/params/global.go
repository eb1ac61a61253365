package params

const (
	// EngineAPIPath is the path of the REST API below the engine root URL.
	EngineAPIPath = "/ovirt-engine/api"
	// EngineHealthPath is the path of the engine health servlet.
	EngineHealthPath = "/ovirt-engine/services/health"
	// EngineHealthyResponse is the body the health servlet returns when the engine and its database are up.
	EngineHealthyResponse = "DB Up!Welcome to Health Status!"
	// EnginePKIPath is the path serving the engine CA certificate and SSH public key.
	EnginePKIPath = "/ovirt-engine/services/pki-resource"
)

// Label is shared by every suite of the repository.
const Label = "ovirt"
