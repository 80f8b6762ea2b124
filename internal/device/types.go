package device

// Required configuration keys, as they appear in a device file.
const (
	KeyHostname          = "hostname"
	KeyHardResetCommand  = "hard_reset_command"
	KeyPowerOffCommand   = "power_off_cmd"
	KeyConnectionCommand = "connection_command"
)

// requiredKeys lists the keys every device file must define, in the
// order they are checked.
var requiredKeys = []string{
	KeyHostname,
	KeyHardResetCommand,
	KeyPowerOffCommand,
	KeyConnectionCommand,
}

// Device is one controllable lab machine and its control commands.
//
// The commands are opaque shell command lines; nothing in this package
// interprets or runs them. A Device is not modified after ingestion.
type Device struct {
	// Hostname is the unique device name and the key used everywhere else.
	Hostname string `json:"hostname"`

	HardResetCommand  string `json:"hard_reset_command"`
	PowerOffCommand   string `json:"power_off_cmd"`
	ConnectionCommand string `json:"connection_command"`

	// Source is the file the device was read from. Empty when parsed
	// from raw bytes.
	Source string `json:"source,omitempty"`
}
