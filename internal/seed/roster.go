package seed

import (
	_ "embed"
	"fmt"

	"github.com/okian/floorwatch/internal/domain/model"
	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var rosterYAML []byte

// Roster is the fixed reference data of the demo floor.
type Roster struct {
	Workers      []model.Worker
	Workstations []model.Workstation
}

type rosterFile struct {
	Workers []struct {
		ID         string `yaml:"id"`
		Name       string `yaml:"name"`
		Shift      string `yaml:"shift"`
		Department string `yaml:"department"`
	} `yaml:"workers"`
	Workstations []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Location string `yaml:"location"`
		Type     string `yaml:"type"`
	} `yaml:"workstations"`
}

// DefaultRoster returns the embedded roster.
func DefaultRoster() (Roster, error) { return ParseRoster(rosterYAML) }

// ParseRoster decodes a roster document and checks its identifiers.
func ParseRoster(data []byte) (Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Roster{}, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	var r Roster
	for _, w := range f.Workers {
		if !model.ValidWorkerID(w.ID) {
			return Roster{}, fmt.Errorf("%w: worker id %q", ErrInvalidRoster, w.ID)
		}
		r.Workers = append(r.Workers, model.Worker{ID: w.ID, Name: w.Name, Shift: w.Shift, Department: w.Department})
	}
	for _, ws := range f.Workstations {
		if !model.ValidWorkstationID(ws.ID) {
			return Roster{}, fmt.Errorf("%w: workstation id %q", ErrInvalidRoster, ws.ID)
		}
		r.Workstations = append(r.Workstations, model.Workstation{ID: ws.ID, Name: ws.Name, Location: ws.Location, Type: ws.Type})
	}
	if len(r.Workers) == 0 || len(r.Workstations) == 0 {
		return Roster{}, fmt.Errorf("%w: needs at least one worker and one workstation", ErrInvalidRoster)
	}
	return r, nil
}
