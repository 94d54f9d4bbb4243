package protocol

import "time"

// Config represents the root daemon configuration.
type Config struct {
	Version       string              `yaml:"version"`
	Service       ServiceConfig       `yaml:"service"`
	Standby       StandbyConfig       `yaml:"standby"`
	Notify        NotifyConfig        `yaml:"notify"`
	Control       ControlConfig       `yaml:"control"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Name string `yaml:"name"`
}

type StandbyConfig struct {
	ParamsFile string          `yaml:"params_file"` // JSON parameter store
	PowerLock  PowerLockConfig `yaml:"power_lock"`
	Charge     ChargeConfig    `yaml:"charge"`
	Sensors    SensorsConfig   `yaml:"sensors"`
	Worker     WorkerConfig    `yaml:"worker"`
}

type PowerLockConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Name     string `yaml:"name"`
	SysfsDir string `yaml:"sysfs_dir"` // directory holding wake_lock / wake_unlock
}

type ChargeConfig struct {
	SupplyDir string `yaml:"supply_dir"` // e.g. /sys/class/power_supply
}

type SensorsConfig struct {
	IIODevice string  `yaml:"iio_device"` // accelerometer device directory; empty disables polling
	Scale     float64 `yaml:"scale"`
}

type WorkerConfig struct {
	QueueSize int `yaml:"queue_size"`
}

type NotifyConfig struct {
	Redis RedisConfig `yaml:"redis"`
	NATS  NATSConfig  `yaml:"nats"`
	Log   bool        `yaml:"log"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Channel  string `yaml:"channel"`
	StateKey string `yaml:"state_key"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type ControlConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type ObservabilityConfig struct {
	MetricsPort    string `yaml:"metrics_port"`
	LogLevel       string `yaml:"log_level"`
	ReportInterval string `yaml:"report_interval"`
}

// EventKind identifies a notification dispatched to strategy collaborators.
type EventKind string

const (
	EventPhaseTransit EventKind = "phase-transit"
	EventStateTransit EventKind = "state-transit"
	EventStateBlocked EventKind = "state-blocked"
	EventEvalResult   EventKind = "eval-result"
	EventStatus       EventKind = "status"
)

// Message is what strategy collaborators receive. Params is a typed bag whose keys depend on Kind:
// phase-transit and state-transit carry previousState, currentState, previousPhase, currentPhase.
type Message struct {
	Kind      EventKind         `json:"kind"`
	Params    map[string]string `json:"params"`
	Timestamp time.Time         `json:"timestamp"`
}

// Parameter bag keys
const (
	ParamPreviousState = "previousState"
	ParamCurrentState  = "currentState"
	ParamPreviousPhase = "previousPhase"
	ParamCurrentPhase  = "currentPhase"
	ParamEvalID        = "evalId"
	ParamVerdict       = "verdict"
	ParamReason        = "reason"
)

// NewMessage builds a message with an empty parameter bag.
func NewMessage(kind EventKind, at time.Time) Message {
	return Message{Kind: kind, Params: make(map[string]string), Timestamp: at}
}

// With sets a parameter and returns the message for chaining.
func (m Message) With(key, value string) Message {
	m.Params[key] = value
	return m
}

// Snapshot is the dump of the state manager served over the control channel.
type Snapshot struct {
	State         string    `json:"state"`
	Phase         string    `json:"phase"`
	PreviousState string    `json:"previous_state"`
	Evaluating    bool      `json:"evaluating"`
	EvalID        string    `json:"eval_id,omitempty"`
	Blocked       bool      `json:"blocked"`
	LockHeld      bool      `json:"lock_held"`
	ScreenOn      bool      `json:"screen_on"`
	Charging      bool      `json:"charging"`
	Condition     string    `json:"condition"`
	Timers        []string  `json:"timers"`
	Taken         time.Time `json:"taken"`
}

// ControlRequest is a request sent over the control socket.
type ControlRequest struct {
	Command string `json:"command"` // "dump" or "event"
	Event   string `json:"event,omitempty"`
}

// ControlResponse answers a ControlRequest.
type ControlResponse struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Personal.AI order the ending
