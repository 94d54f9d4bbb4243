package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// document is the on-disk layout of the parameter store.
type document struct {
	Switches   map[string]bool  `json:"switches"`
	Parameters map[string]int   `json:"parameters"`
	Intervals  map[string][]int `json:"intervals"`
}

// Params is the read-only standby parameter store. It is fully loaded before the
// state machine starts and never mutated afterwards, so lookups need no locking.
type Params struct {
	switches   map[string]bool
	parameters map[string]int
	intervals  map[string][]int
}

// Empty returns a store with no keys; every lookup yields its default.
func Empty() *Params {
	return &Params{
		switches:   map[string]bool{},
		parameters: map[string]int{},
		intervals:  map[string][]int{},
	}
}

// Parse reads a parameter document. Line comments, block comments and trailing commas are accepted.
func Parse(data []byte) (*Params, error) {
	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "Parse", "malformed parameter document", err)
	}
	p := Empty()
	for k, v := range doc.Switches {
		p.switches[k] = v
	}
	for k, v := range doc.Parameters {
		if v < 0 {
			return nil, serrors.New(serrors.ErrCodeConfigInvalid, "Parse", fmt.Sprintf("parameter %s is negative", k), nil)
		}
		p.parameters[k] = v
	}
	for k, v := range doc.Intervals {
		p.intervals[k] = append([]int(nil), v...)
	}
	return p, nil
}

// Load reads the parameter store from path.
func Load(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigMissing, "Load", "cannot read "+path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Parameter store loaded", "path", path,
		"switches", len(p.switches), "parameters", len(p.parameters), "intervals", len(p.intervals))
	return p, nil
}

// GetBool returns a switch, or def when absent.
func (p *Params) GetBool(key string, def bool) bool {
	if v, ok := p.switches[key]; ok {
		return v
	}
	return def
}

// GetInt returns a parameter, or def when absent.
func (p *Params) GetInt(key string, def int) int {
	if v, ok := p.parameters[key]; ok {
		return v
	}
	return def
}

// GetList returns a copy of an interval list; nil when absent.
func (p *Params) GetList(key string) []int {
	v, ok := p.intervals[key]
	if !ok {
		return nil
	}
	return append([]int(nil), v...)
}

// Seconds returns a parameter stored in seconds as a duration.
func (p *Params) Seconds(key string, def time.Duration) time.Duration {
	if v, ok := p.parameters[key]; ok {
		return time.Duration(v) * time.Second
	}
	return def
}

// Millis returns a parameter stored in milliseconds as a duration.
func (p *Params) Millis(key string, def time.Duration) time.Duration {
	if v, ok := p.parameters[key]; ok {
		return time.Duration(v) * time.Millisecond
	}
	return def
}

// Personal.AI order the ending
